// Package notifications delivers run events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, and
// individual events can be switched off in the [notifications] config table.
// Callers depend only on the Service interface.
package notifications
