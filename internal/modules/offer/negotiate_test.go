package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/georgemunganga/marketsim-backend/internal/modules/need"
)

func makeNeed(priceMax float64) *need.Need {
	return &need.Need{
		NeedID: "need_u1_01",
		UserID: "u1",
		Preferences: need.Preferences{
			Tags:     []string{"eco-friendly"},
			PriceMax: priceMax,
		},
	}
}

func makeOffer(price float64, strategy string) *Offer {
	return &Offer{
		OfferID:    "offer_m1_01",
		ProvidedBy: "m1",
		ProductID:  "product_s1_01",
		Product: ProductSnapshot{
			Name:     "Flight to Paris",
			Category: "Travel",
			Price:    price,
			Tags:     []string{"eco-friendly"},
		},
		Strategy: strategy,
	}
}

func TestNegotiateDecisionTable(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		price    float64
		priceMax float64
		want     string
	}{
		{"match_score under budget", StrategyMatchScore, 380, 400, StatusAccepted},
		{"match_score at budget", StrategyMatchScore, 400, 400, StatusAccepted},
		{"match_score inside counter band", StrategyMatchScore, 420, 400, StatusCounterOffer},
		{"match_score at counter edge", StrategyMatchScore, 425, 400, StatusCounterOffer},
		{"match_score beyond counter band", StrategyMatchScore, 426, 400, StatusRejected},
		{"budget_focus under budget", StrategyBudgetFocus, 390, 400, StatusAccepted},
		{"budget_focus inside counter band", StrategyBudgetFocus, 410, 400, StatusCounterOffer},
		{"budget_focus at counter edge", StrategyBudgetFocus, 415, 400, StatusCounterOffer},
		{"budget_focus overshoot 20", StrategyBudgetFocus, 420, 400, StatusRejected},
		{"high_margin under budget", StrategyHighMargin, 399, 400, StatusAccepted},
		{"high_margin never counters", StrategyHighMargin, 401, 400, StatusRejected},
		{"unknown strategy accepts under budget", "aggregated_offers", 100, 400, StatusAccepted},
		{"unknown strategy never counters", "aggregated_offers", 401, 400, StatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Negotiate(makeNeed(tt.priceMax), makeOffer(tt.price, tt.strategy))
			assert.Equal(t, tt.want, result.Status)
			assert.Equal(t, tt.price, result.OfferedPrice)
			assert.Equal(t, tt.priceMax, result.MaxUserPrice)
			assert.Equal(t, tt.strategy, result.Strategy)
			assert.Equal(t, "m1", result.AgentID)
		})
	}
}

// An accepted negotiation always means the offer fits the buyer's
// budget, for every strategy.
func TestNegotiateAcceptedImpliesWithinBudget(t *testing.T) {
	strategies := []string{StrategyMatchScore, StrategyBudgetFocus, StrategyHighMargin, "whatever"}
	for _, strategy := range strategies {
		for price := 350.0; price <= 450; price += 5 {
			result := Negotiate(makeNeed(400), makeOffer(price, strategy))
			if result.Status == StatusAccepted {
				assert.LessOrEqual(t, result.OfferedPrice, result.MaxUserPrice,
					"strategy %s accepted an over-budget price", strategy)
			}
		}
	}
}

// budget_focus counters on a strictly smaller overshoot range than
// match_score.
func TestNegotiateCounterBandOrdering(t *testing.T) {
	overshoot20 := makeOffer(420, StrategyBudgetFocus)
	assert.Equal(t, StatusRejected, Negotiate(makeNeed(400), overshoot20).Status)

	overshoot20.Strategy = StrategyMatchScore
	assert.Equal(t, StatusCounterOffer, Negotiate(makeNeed(400), overshoot20).Status)
}
