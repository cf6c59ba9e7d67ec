package worker

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/georgemunganga/marketsim-backend/internal/modules/offer"
	"github.com/georgemunganga/marketsim-backend/internal/modules/provider"
)

// Providers drip-registers merchants from the candidate pool, stages an
// offer per registered merchant each cycle, and occasionally retires a
// merchant, withdrawing its live offers.
type Providers struct {
	providers  provider.Service
	offers     offer.Service
	candidates []string
	strategies []string

	registerEvery time.Duration
	retireEvery   time.Duration
	delayMin      time.Duration
	delayMax      time.Duration
	offerTTL      time.Duration

	log *slog.Logger
}

func NewProviders(providers provider.Service, offers offer.Service, candidates, strategies []string,
	registerEvery, retireEvery, delayMin, delayMax, offerTTL time.Duration) *Providers {
	return &Providers{
		providers:     providers,
		offers:        offers,
		candidates:    candidates,
		strategies:    strategies,
		registerEvery: registerEvery,
		retireEvery:   retireEvery,
		delayMin:      delayMin,
		delayMax:      delayMax,
		offerTTL:      offerTTL,
		log:           slog.Default().With("component", "provider_worker"),
	}
}

func (w *Providers) Run(ctx context.Context) error {
	w.log.Info("started", "candidates", len(w.candidates))
	lastRegister := time.Time{} // register the first candidate immediately
	lastRetire := time.Now()
	for {
		now := time.Now()

		if now.Sub(lastRegister) >= w.registerEvery {
			if err := w.registerNext(ctx); err != nil {
				w.log.Error("provider registration failed", "err", err)
			}
			lastRegister = now
		}

		if now.Sub(lastRetire) >= w.retireEvery {
			if err := w.retireOne(ctx); err != nil {
				w.log.Error("provider retirement failed", "err", err)
			}
			lastRetire = now
		}

		w.stageOffers(ctx)

		// Random spacing inside the configured delay band.
		if !wait(ctx, w.delayMin, w.delayMax-w.delayMin) {
			return ctx.Err()
		}
	}
}

func (w *Providers) registerNext(ctx context.Context) error {
	existing, err := w.providers.List(ctx)
	if err != nil {
		return err
	}
	for _, candidate := range w.candidates {
		if slices.Contains(existing, candidate) {
			continue
		}
		if _, err := w.providers.Register(ctx, candidate, nil); err != nil {
			return err
		}
		w.log.Info("registered provider", "provider", candidate)
		return nil
	}
	return nil
}

// retireOne unregisters one provider and withdraws every live offer it
// issued, publishing the usual removal events.
func (w *Providers) retireOne(ctx context.Context) error {
	existing, err := w.providers.List(ctx)
	if err != nil || len(existing) == 0 {
		return err
	}
	retired := existing[0]
	if _, err := w.providers.Unregister(ctx, retired); err != nil {
		return err
	}
	offers, err := w.offers.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, o := range offers {
		if o.ProvidedBy != retired {
			continue
		}
		if _, err := w.offers.Remove(ctx, o.OfferID); err != nil {
			return err
		}
	}
	w.log.Info("retired provider and withdrew its offers", "provider", retired)
	return nil
}

func (w *Providers) stageOffers(ctx context.Context) {
	merchants, err := w.providers.List(ctx)
	if err != nil {
		w.log.Error("list providers failed, retrying next cycle", "err", err)
		return
	}
	for _, merchantID := range merchants {
		strategy := w.strategies[rand.IntN(len(w.strategies))]
		o, err := w.offers.Stage(ctx, merchantID, strategy, w.offerTTL)
		if err != nil {
			w.log.Error("stage offer failed", "merchant", merchantID, "err", err)
			continue
		}
		if o == nil {
			w.log.Debug("no offer staged", "merchant", merchantID)
			continue
		}
		w.log.Info("staged offer", "offer", o.OfferID, "merchant", merchantID)
	}
}
