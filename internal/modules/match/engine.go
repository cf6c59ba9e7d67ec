// Package match implements the matching and negotiation engine: it
// consumes offer publications, scores every live need against each
// offer, runs the negotiation policy, applies counter-offers and
// acceptance removals, and emits an audit trace per attempt.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/marketsim-backend/internal/modules/need"
	"github.com/georgemunganga/marketsim-backend/internal/modules/offer"
	"github.com/georgemunganga/marketsim-backend/internal/store"
)

// TopicTraces broadcasts every negotiation trace.
const TopicTraces = "match_traces_stream"

// Scoring constants for the boosted score: base compatibility is worth
// 1.0, each overlapping tag adds a small boost, and the merchant's
// averaged trust signal contributes a weighted share. The total is
// capped and rounded to 3 decimal places.
const (
	scoreBase    = 1.0
	tagBoost     = 0.05
	trustWeight  = 0.2
	scoreCeiling = 2.0
)

// StockIndex answers the inventory guard.
type StockIndex interface {
	Has(ctx context.Context, merchantID, productID string) (bool, error)
}

// Engine is the matching orchestrator. It can be driven by offer events
// (Run) or by periodic sweeps over all active offers (Poll); both
// produce equivalent results modulo timing.
type Engine struct {
	store    store.Store
	needs    need.Service
	offers   offer.Service
	stock    StockIndex
	offerTTL time.Duration
	log      *slog.Logger
}

// NewEngine creates a matching engine. offerTTL is the TTL applied when
// a counter-offer republishes an adjusted offer.
func NewEngine(st store.Store, needs need.Service, offers offer.Service, stock StockIndex, offerTTL time.Duration) *Engine {
	return &Engine{
		store:    st,
		needs:    needs,
		offers:   offers,
		stock:    stock,
		offerTTL: offerTTL,
		log:      slog.Default().With("component", "match"),
	}
}

// Run subscribes to the offers stream and processes each published
// offer until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	sub, err := e.store.Subscribe(ctx, offer.TopicOffers)
	if err != nil {
		return err
	}
	defer sub.Close()

	e.log.Info("listening for new offers")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			var o offer.Offer
			if err := json.Unmarshal(msg.Payload, &o); err != nil {
				continue
			}
			if err := e.ProcessOffer(ctx, &o); err != nil {
				e.log.Error("offer sweep failed", "offer", o.OfferID, "err", err)
			}
		}
	}
}

// Poll sweeps all currently active offers on a fixed interval with
// jitter, as the event-free driver variant.
func (e *Engine) Poll(ctx context.Context, interval, jitter time.Duration) error {
	e.log.Info("polling active offers", "interval", interval)
	for {
		offers, err := e.offers.ListActive(ctx)
		if err != nil {
			e.log.Error("list offers failed, retrying next sweep", "err", err)
		} else {
			for _, o := range offers {
				if err := e.ProcessOffer(ctx, o); err != nil {
					e.log.Error("offer sweep failed", "offer", o.OfferID, "err", err)
				}
			}
		}
		sleep := interval
		if jitter > 0 {
			sleep += rand.N(jitter)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// ProcessOffer runs one sweep of the given offer over all live needs.
func (e *Engine) ProcessOffer(ctx context.Context, o *offer.Offer) error {
	// Inventory guard: an offer whose product is no longer in the
	// issuing merchant's stock is stale and not matched.
	stocked, err := e.stock.Has(ctx, o.ProvidedBy, o.ProductID)
	if err != nil {
		return fmt.Errorf("inventory guard: %w", err)
	}
	if !stocked {
		e.log.Debug("discarding offer with retracted stock", "offer", o.OfferID)
		return nil
	}

	needs, err := e.needs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list needs: %w", err)
	}

	for _, n := range needs {
		if skipPair(n, o) {
			continue
		}

		score, err := e.score(ctx, n, o)
		if err != nil {
			return err
		}
		if score <= 0 {
			continue
		}

		negotiation := offer.Negotiate(n, o)

		// A counter-offer pulls the price down to the buyer's budget
		// and republishes; the rest of this sweep sees the new price.
		if negotiation.Status == offer.StatusCounterOffer {
			adjusted, err := e.offers.AdjustPrice(ctx, o.OfferID, n.Preferences.PriceMax, e.offerTTL)
			if errors.Is(err, offer.ErrOfferNotFound) {
				// Offer expired mid-sweep: no longer relevant.
				continue
			}
			if err != nil {
				return err
			}
			o = adjusted
		}

		needRemoved := false
		if negotiation.Status == offer.StatusAccepted {
			// Only a successful delete counts; a concurrent sweep may
			// have satisfied the same need first.
			removed, err := e.needs.Remove(ctx, n.NeedID)
			if err != nil {
				return err
			}
			needRemoved = removed
		}

		if err := e.recordTrust(ctx, o.ProvidedBy, negotiation.Status); err != nil {
			return err
		}
		if err := e.trace(ctx, n, o, score, negotiation, needRemoved); err != nil {
			return err
		}
	}
	return nil
}

// skipPair applies the product/tag filter ahead of scoring: a need bound
// to a different product never matches, and disjoint declared tag sets
// discard the pair before any trace is emitted.
func skipPair(n *need.Need, o *offer.Offer) bool {
	if n.ProductID != "" && n.ProductID != o.ProductID {
		return true
	}
	if len(n.Preferences.Tags) > 0 && len(o.Product.Tags) > 0 && countOverlap(n.Preferences.Tags, o.Product.Tags) == 0 {
		return true
	}
	return false
}

func countOverlap(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	count := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			count++
		}
	}
	return count
}

// score computes the boosted match score. Base compatibility requires
// identical product identity (or any tag overlap when the need is
// unbound) and a price within the buyer's budget; zero means no match.
func (e *Engine) score(ctx context.Context, n *need.Need, o *offer.Offer) (float64, error) {
	overlap := countOverlap(n.Preferences.Tags, o.Product.Tags)

	compatible := n.ProductID != "" && n.ProductID == o.ProductID
	if n.ProductID == "" {
		compatible = overlap > 0
	}
	if !compatible || o.Product.Price > n.Preferences.PriceMax {
		return 0, nil
	}

	score := scoreBase + tagBoost*float64(overlap)

	trust, err := e.averageTrust(ctx, o.ProvidedBy)
	if err != nil {
		return 0, err
	}
	score += trustWeight * trust

	if score > scoreCeiling {
		score = scoreCeiling
	}
	return math.Round(score*1000) / 1000, nil
}

func trustKey(merchantID string) string { return "trust:" + merchantID }

// averageTrust averages the merchant's historical negotiation outcomes;
// a merchant with no history scores 0.
func (e *Engine) averageTrust(ctx context.Context, merchantID string) (float64, error) {
	samples, err := e.store.ListRange(ctx, trustKey(merchantID), 0, -1)
	if err != nil {
		return 0, fmt.Errorf("trust %s: %w", merchantID, err)
	}
	if len(samples) == 0 {
		return 0, nil
	}
	var sum float64
	for _, raw := range samples {
		v, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			continue
		}
		sum += v
	}
	return sum / float64(len(samples)), nil
}

// recordTrust appends one trust sample per negotiation attempt:
// accepted 1, counter-offer 0.5, rejected 0.
func (e *Engine) recordTrust(ctx context.Context, merchantID, status string) error {
	var sample float64
	switch status {
	case offer.StatusAccepted:
		sample = 1
	case offer.StatusCounterOffer:
		sample = 0.5
	}
	value := strconv.FormatFloat(sample, 'f', -1, 64)
	return e.store.ListPush(ctx, trustKey(merchantID), []byte(value))
}

func (e *Engine) trace(ctx context.Context, n *need.Need, o *offer.Offer, score float64, negotiation offer.Negotiation, needRemoved bool) error {
	t := Trace{
		TraceID:     uuid.NewString(),
		UserID:      n.UserID,
		NeedID:      n.NeedID,
		OfferID:     o.OfferID,
		Score:       score,
		Negotiation: negotiation,
		NeedRemoved: needRemoved,
		EvaluatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := e.store.ListPush(ctx, traceKey(n.UserID), payload); err != nil {
		return err
	}
	return e.store.Publish(ctx, TopicTraces, payload)
}

func traceKey(userID string) string { return "match_traces:" + userID }

// TracesForUser returns the user's full audit log in append order.
func (e *Engine) TracesForUser(ctx context.Context, userID string) ([]*Trace, error) {
	values, err := e.store.ListRange(ctx, traceKey(userID), 0, -1)
	if err != nil {
		return nil, err
	}
	traces := make([]*Trace, 0, len(values))
	for _, raw := range values {
		var t Trace
		if err := json.Unmarshal(raw, &t); err != nil {
			continue
		}
		traces = append(traces, &t)
	}
	return traces, nil
}
