// Package notifications pushes sync lifecycle events to an ntfy topic.
// When no topic is configured every publish is a silent no-op, so callers
// never guard their notification calls.
package notifications
