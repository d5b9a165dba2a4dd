package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks agent runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	Logons          atomic.Int64 // successful logons
	Reconnects      atomic.Int64 // reconnects scheduled after transport drops
	CommandsHandled atomic.Int64 // chat commands dispatched
	KeysRedeemed    atomic.Int64 // key redemptions answered
	TradesChecked   atomic.Int64 // trade-offer check passes triggered
	FriendsAccepted atomic.Int64 // friend requests accepted
	FriendsDeclined atomic.Int64 // friend requests declined
}

// NewMetrics creates a Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// MetricsSnapshot is a point-in-time view of all counters.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	Logons          int64 `json:"logons"`
	Reconnects      int64 `json:"reconnects"`
	CommandsHandled int64 `json:"commands_handled"`
	KeysRedeemed    int64 `json:"keys_redeemed"`
	TradesChecked   int64 `json:"trades_checked"`
	FriendsAccepted int64 `json:"friends_accepted"`
	FriendsDeclined int64 `json:"friends_declined"`
}

// Snapshot returns a read-consistent snapshot of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:          uptime.Truncate(time.Second).String(),
		UptimeSeconds:   int64(uptime.Seconds()),
		Logons:          m.Logons.Load(),
		Reconnects:      m.Reconnects.Load(),
		CommandsHandled: m.CommandsHandled.Load(),
		KeysRedeemed:    m.KeysRedeemed.Load(),
		TradesChecked:   m.TradesChecked.Load(),
		FriendsAccepted: m.FriendsAccepted.Load(),
		FriendsDeclined: m.FriendsDeclined.Load(),
	}
}

// JSON returns the snapshot as an indented JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// StartHTTP serves /metrics and /healthz on addr until ctx is cancelled.
// An empty addr disables the endpoint.
func (m *Metrics) StartHTTP(ctx context.Context, addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(m.JSON()))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
