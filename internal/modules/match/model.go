package match

import (
	"time"

	"github.com/georgemunganga/marketsim-backend/internal/modules/offer"
)

// Trace is the immutable audit record of one (need, offer) evaluation.
// It is appended to the per-user trace log and broadcast; never mutated.
type Trace struct {
	TraceID     string            `json:"trace_id"`
	UserID      string            `json:"user_id"`
	NeedID      string            `json:"need_id"`
	OfferID     string            `json:"offer_id"`
	Score       float64           `json:"score"`
	Negotiation offer.Negotiation `json:"negotiation"`
	NeedRemoved bool              `json:"need_removed"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
}
