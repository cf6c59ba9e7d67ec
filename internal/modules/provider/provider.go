package provider

import "time"

// Event is published on the providers stream whenever a merchant is
// registered, unregistered, or has its metadata updated.
type Event struct {
	ProviderID string            `json:"provider_id"`
	Action     string            `json:"action"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
