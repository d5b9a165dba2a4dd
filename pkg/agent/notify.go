package agent

import (
	"log/slog"

	"github.com/xetas/tradebot/pkg/model"
	"github.com/xetas/tradebot/pkg/platform"
	"github.com/xetas/tradebot/pkg/trade"
)

// OfferChecker resolves pending trade offers.
type OfferChecker interface {
	CheckOffers(selfID model.AccountID) (trade.Summary, error)
}

// Router maps server-pushed notification kinds to subsystem actions.
// Kinds it does not know are ignored, so new server-side categories never
// break dispatch.
type Router struct {
	client  platform.Client
	loop    *Loop
	checker OfferChecker
	metrics *Metrics
}

// NewRouter wires the notification router. checker may be nil.
func NewRouter(client platform.Client, loop *Loop, checker OfferChecker, metrics *Metrics) *Router {
	return &Router{client: client, loop: loop, checker: checker, metrics: metrics}
}

// HandleNotifications processes one pushed batch. A nil or empty batch is
// a no-op.
func (r *Router) HandleNotifications(ev *platform.NotificationsEvent) {
	if ev == nil || len(ev.Kinds) == 0 {
		return
	}

	for _, kind := range ev.Kinds {
		switch kind {
		case model.NotifyTrading:
			r.checkTradeOffers()
		default:
			slog.Debug("ignoring notification", "kind", kind)
		}
	}
}

func (r *Router) checkTradeOffers() {
	if r.checker == nil {
		return
	}
	if r.metrics != nil {
		r.metrics.TradesChecked.Add(1)
	}
	selfID := r.client.SelfID()
	go func() {
		sum, err := r.checker.CheckOffers(selfID)
		r.loop.Post(func() {
			if err != nil {
				slog.Warn("trade offer check failed", "err", err)
				return
			}
			slog.Info("trade offers checked",
				"accepted", sum.Accepted, "declined", sum.Declined, "skipped", sum.Skipped)
		})
	}()
}
