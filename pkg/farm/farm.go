// Package farm keeps the bot "playing" games that still have card drops,
// so the platform keeps dropping cards while the bot idles.
package farm

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// maxConcurrentGames is the platform's limit on simultaneously played apps.
const maxConcurrentGames = 32

// DropsSource reports which apps still have card drops remaining.
type DropsSource interface {
	GamesWithDrops() ([]uint32, error)
}

// GamesPlayer publishes the set of apps being played.
type GamesPlayer interface {
	SetGamesPlayed(appIDs []uint32)
}

// Farmer periodically refreshes the played-games set from the drops source.
type Farmer struct {
	drops    DropsSource
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewFarmer returns a Farmer polling at the given interval
// (5 minutes when zero).
func NewFarmer(drops DropsSource, interval time.Duration) *Farmer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Farmer{drops: drops, interval: interval}
}

// Start begins farming through the given player. Calling Start while a farm
// loop is already running is a no-op.
func (f *Farmer) Start(player GamesPlayer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	go f.run(ctx, player)
}

// Stop halts farming and clears the played-games set on the next refresh.
func (f *Farmer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// Running reports whether a farm loop is active.
func (f *Farmer) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

func (f *Farmer) run(ctx context.Context, player GamesPlayer) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.refresh(player)
	for {
		select {
		case <-ctx.Done():
			player.SetGamesPlayed(nil)
			return
		case <-ticker.C:
			f.refresh(player)
		}
	}
}

func (f *Farmer) refresh(player GamesPlayer) {
	ids, err := f.drops.GamesWithDrops()
	if err != nil {
		slog.Warn("fetch card drops failed", "err", err)
		return
	}
	if len(ids) > maxConcurrentGames {
		ids = ids[:maxConcurrentGames]
	}
	if len(ids) == 0 {
		slog.Info("no card drops remaining")
	}
	player.SetGamesPlayed(ids)
}
