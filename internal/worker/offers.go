package worker

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/georgemunganga/marketsim-backend/internal/modules/offer"
	"github.com/georgemunganga/marketsim-backend/internal/modules/provider"
)

// Offers generates a wave of offers, one per registered merchant, each
// cycle.
type Offers struct {
	offers     offer.Service
	providers  provider.Service
	strategies []string
	interval   time.Duration
	jitter     time.Duration
	offerTTL   time.Duration
	log        *slog.Logger
}

func NewOffers(offers offer.Service, providers provider.Service, strategies []string, interval, jitter, offerTTL time.Duration) *Offers {
	return &Offers{
		offers:     offers,
		providers:  providers,
		strategies: strategies,
		interval:   interval,
		jitter:     jitter,
		offerTTL:   offerTTL,
		log:        slog.Default().With("component", "offer_worker"),
	}
}

func (w *Offers) Run(ctx context.Context) error {
	w.log.Info("started", "interval", w.interval, "ttl", w.offerTTL)
	for {
		merchants, err := w.providers.List(ctx)
		if err != nil {
			w.log.Error("list providers failed, retrying next cycle", "err", err)
		} else {
			for _, merchantID := range merchants {
				strategy := w.strategies[rand.IntN(len(w.strategies))]
				o, err := w.offers.Generate(ctx, merchantID, strategy, w.offerTTL)
				if err != nil {
					w.log.Error("generate offer failed", "merchant", merchantID, "err", err)
					continue
				}
				if o == nil {
					w.log.Debug("no eligible product to offer", "merchant", merchantID)
					continue
				}
				w.log.Info("generated offer", "offer", o.OfferID, "merchant", merchantID,
					"strategy", strategy)
			}
		}
		if !wait(ctx, w.interval, w.jitter) {
			return ctx.Err()
		}
	}
}
