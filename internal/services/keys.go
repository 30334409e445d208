package services

// InstanceKey builds the canonical "service:name" key used for dedup,
// cache entries, search gating, and store bookkeeping.
func InstanceKey(service, name string) string {
	return service + ":" + name
}
