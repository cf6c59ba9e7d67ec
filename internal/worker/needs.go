package worker

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/georgemunganga/marketsim-backend/internal/modules/need"
	"github.com/georgemunganga/marketsim-backend/internal/modules/user"
)

// Needs periodically generates one fresh need per registered user, then
// scans for needs that have gone unsatisfied past the threshold.
type Needs struct {
	needs     need.Service
	users     user.Service
	interval  time.Duration
	jitter    time.Duration
	needTTL   time.Duration
	threshold time.Duration
	log       *slog.Logger
}

func NewNeeds(needs need.Service, users user.Service, interval, jitter, needTTL, threshold time.Duration) *Needs {
	return &Needs{
		needs:     needs,
		users:     users,
		interval:  interval,
		jitter:    jitter,
		needTTL:   needTTL,
		threshold: threshold,
		log:       slog.Default().With("component", "need_worker"),
	}
}

var priceMaxChoices = []float64{300, 400, 500, 600}

func (w *Needs) Run(ctx context.Context) error {
	w.log.Info("started", "interval", w.interval, "ttl", w.needTTL)
	for {
		userIDs, err := w.users.List(ctx)
		if err != nil {
			w.log.Error("list users failed, retrying next cycle", "err", err)
		} else {
			for _, userID := range userIDs {
				prefs := need.Preferences{
					Tags:     sampleTags(2),
					PriceMax: priceMaxChoices[rand.IntN(len(priceMaxChoices))],
				}
				n, err := w.needs.Submit(ctx, userID, prefs, w.needTTL)
				if errors.Is(err, need.ErrUnknownUser) {
					// The registry raced with a concurrent listing; the
					// user will be picked up next cycle.
					continue
				}
				if err != nil {
					w.log.Error("submit need failed", "user", userID, "err", err)
					continue
				}
				w.log.Info("generated need", "need", n.NeedID, "user", userID)
			}
			if err := w.needs.DetectUnsatisfied(ctx, w.threshold); err != nil {
				w.log.Error("unsatisfied scan failed", "err", err)
			}
		}
		if !wait(ctx, w.interval, w.jitter) {
			return ctx.Err()
		}
	}
}
