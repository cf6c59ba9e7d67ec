package need

import "time"

// Preferences hold a buyer's tag and price constraints for one need.
type Preferences struct {
	Tags     []string `json:"tags,omitempty"`
	PriceMax float64  `json:"price_max"`
}

// Need represents one buyer's active intent. It exists only while its
// TTL has not elapsed, or until explicitly removed on satisfaction.
type Need struct {
	NeedID      string      `json:"need_id"`
	UserID      string      `json:"user_id"`
	Preferences Preferences `json:"preferences"`
	// ProductID/ProductName are bound at creation when the preferences
	// do not name an explicit product; empty when the catalog was empty.
	ProductID   string    `json:"product_id,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UnsatisfiedEvent is published when a need outlives the unsatisfied
// threshold without being matched.
type UnsatisfiedEvent struct {
	NeedID string  `json:"need_id"`
	AgeS   float64 `json:"age_s"`
}
