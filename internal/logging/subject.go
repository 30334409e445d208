package logging

import "strings"

// FormatSubject builds the service/instance/item subject string used in console output.
func FormatSubject(service, instance, itemID string) string {
	service = strings.TrimSpace(service)
	instance = strings.TrimSpace(instance)
	itemID = strings.TrimSpace(itemID)
	parts := make([]string, 0, 3)
	if service != "" {
		var formattedService string
		if len(service) > 1 {
			formattedService = strings.ToUpper(service[:1]) + strings.ToLower(service[1:])
		} else {
			formattedService = strings.ToUpper(service)
		}
		if instance != "" {
			formattedService += "/" + instance
		}
		parts = append(parts, formattedService)
	} else if instance != "" {
		parts = append(parts, instance)
	}
	if itemID != "" {
		parts = append(parts, "Item #"+itemID)
	}
	return strings.Join(parts, " · ")
}
