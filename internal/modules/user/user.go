package user

import "time"

// User represents a registered buyer in the simulation.
type User struct {
	UserID    string            `json:"user_id"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
