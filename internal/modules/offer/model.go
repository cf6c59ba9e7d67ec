package offer

import "time"

// Negotiation strategies. Anything else falls through to the default
// accept-or-reject behavior.
const (
	StrategyMatchScore  = "match_score"
	StrategyBudgetFocus = "budget_focus"
	StrategyHighMargin  = "high_margin"
)

// Negotiation outcomes.
const (
	StatusAccepted     = "accepted"
	StatusCounterOffer = "counter-offer"
	StatusRejected     = "rejected"
)

// ProductSnapshot is the denormalized copy of product attributes taken
// when the offer is generated. Price mutations republish the whole
// snapshot; it is never partially updated.
type ProductSnapshot struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    float64  `json:"price"`
	Tags     []string `json:"tags,omitempty"`
	Brand    string   `json:"brand,omitempty"`
}

// Offer represents one merchant's sellable instance of a product.
type Offer struct {
	OfferID    string          `json:"offer_id"`
	ProvidedBy string          `json:"provided_by"`
	ProductID  string          `json:"product_id"`
	Product    ProductSnapshot `json:"product"`
	Strategy   string          `json:"strategy"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Negotiation is the result of one price negotiation between a need and
// an offer.
type Negotiation struct {
	OfferedPrice float64 `json:"offered_price"`
	MaxUserPrice float64 `json:"max_user_price"`
	Status       string  `json:"status"`
	Strategy     string  `json:"strategy"`
	AgentID      string  `json:"agent_id"`
}
