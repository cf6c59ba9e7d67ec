package offer

import "github.com/georgemunganga/marketsim-backend/internal/modules/need"

// Negotiate runs the strategy-driven price negotiation between a need
// and an offer. Pure: no I/O, no side effects.
//
// Decision table by strategy:
//   - match_score:  accept at or under budget, counter-offer on an
//     overshoot of up to 25, reject beyond.
//   - budget_focus: same shape with a tighter counter band of 15.
//   - high_margin and anything else: accept or reject, never counter.
func Negotiate(n *need.Need, o *Offer) Negotiation {
	price := o.Product.Price
	maxPrice := n.Preferences.PriceMax

	var status string
	switch o.Strategy {
	case StrategyMatchScore:
		switch {
		case price <= maxPrice:
			status = StatusAccepted
		case price-maxPrice <= 25:
			status = StatusCounterOffer
		default:
			status = StatusRejected
		}
	case StrategyBudgetFocus:
		switch {
		case price <= maxPrice:
			status = StatusAccepted
		case price-maxPrice <= 15:
			status = StatusCounterOffer
		default:
			status = StatusRejected
		}
	default:
		// high_margin and unknown strategies never counter.
		if price <= maxPrice {
			status = StatusAccepted
		} else {
			status = StatusRejected
		}
	}

	return Negotiation{
		OfferedPrice: price,
		MaxUserPrice: maxPrice,
		Status:       status,
		Strategy:     o.Strategy,
		AgentID:      o.ProvidedBy,
	}
}
