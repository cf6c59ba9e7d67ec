package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/georgemunganga/marketsim-backend/internal/modules/user"
)

// Users registers new users in batches until the population cap is
// reached, then idles.
type Users struct {
	users    user.Service
	interval time.Duration
	jitter   time.Duration
	maxUsers int
	perCycle int
	log      *slog.Logger
}

func NewUsers(users user.Service, interval, jitter time.Duration, maxUsers, perCycle int) *Users {
	return &Users{
		users:    users,
		interval: interval,
		jitter:   jitter,
		maxUsers: maxUsers,
		perCycle: perCycle,
		log:      slog.Default().With("component", "user_worker"),
	}
}

var userSegments = []string{"A", "B", "C"}

func (w *Users) Run(ctx context.Context) error {
	w.log.Info("started", "interval", w.interval, "max_users", w.maxUsers)
	for {
		existing, err := w.users.List(ctx)
		switch {
		case err != nil:
			w.log.Error("list users failed, retrying next cycle", "err", err)
		case len(existing) >= w.maxUsers:
			w.log.Debug("user cap reached, skipping cycle", "count", len(existing))
		default:
			toCreate := min(w.perCycle, w.maxUsers-len(existing))
			for i := 0; i < toCreate; i++ {
				uid := fmt.Sprintf("user_%s", strings.ToLower(ulid.Make().String()))
				attrs := map[string]string{"segment": userSegments[rand.IntN(len(userSegments))]}
				if _, err := w.users.Create(ctx, uid, attrs); err != nil {
					w.log.Error("create user failed", "user", uid, "err", err)
					continue
				}
				w.log.Info("created user", "user", uid)
			}
		}
		if !wait(ctx, w.interval, w.jitter) {
			return ctx.Err()
		}
	}
}
