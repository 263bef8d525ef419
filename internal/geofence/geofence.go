// Package geofence switches the home between HOME and AWAY based on the
// location of the geotracked mobile devices: if any device is at home while
// the home is set to AWAY, it switches to HOME, and vice versa. Manual
// presence settings are therefore overridden on the next cycle.
package geofence

import (
	"context"
	"log/slog"
	"strings"

	"github.com/clambin/tadox-monitor/internal/notifier"
	"github.com/clambin/tadox-monitor/internal/poller"
	"github.com/clambin/tadox-monitor/internal/tadox"
)

type TadoClient interface {
	SetPresence(ctx context.Context, presence tadox.Presence) error
}

type Evaluator struct {
	Poller     poller.Poller
	TadoClient TadoClient
	Notifier   notifier.Notifier
	logger     *slog.Logger
}

func New(p poller.Poller, client TadoClient, n notifier.Notifier, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		Poller:     p,
		TadoClient: client,
		Notifier:   n,
		logger:     logger,
	}
}

func (e *Evaluator) Run(ctx context.Context) error {
	e.logger.Debug("started")
	defer e.logger.Debug("stopped")

	ch := e.Poller.Subscribe()
	defer e.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			e.evaluate(ctx, update)
		}
	}
}

func (e *Evaluator) evaluate(ctx context.Context, update poller.Update) {
	// without geotracked devices there is nothing to decide on
	if len(update.MobileDevices) == 0 {
		return
	}

	home, _ := update.MobileDevices.Presence()

	var target tadox.Presence
	var reason string
	switch {
	case len(home) > 0 && update.HomeState.Presence == tadox.PresenceAway:
		target = tadox.PresenceHome
		reason = strings.Join(home, ", ") + " at home. Switching to HOME mode"
	case len(home) == 0 && update.HomeState.Presence == tadox.PresenceHome:
		target = tadox.PresenceAway
		reason = "all users away. Switching to AWAY mode"
	default:
		return
	}

	if err := e.TadoClient.SetPresence(ctx, target); err != nil {
		e.logger.Error("failed to set presence", slog.String("presence", string(target)), slog.Any("err", err))
		return
	}
	e.Notifier.Notify(reason)
	e.Poller.Refresh()
}
