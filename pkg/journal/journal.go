// Package journal provides SQLite-backed persistence for the bot's
// activity: redeemed keys, friend-request decisions, and trade-offer
// decisions. The journal is append-only from the bot's point of view.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xetas/tradebot/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// Journal provides database access for all recorded bot activity.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite journal and runs migrations.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}

	ctx := context.Background()

	// WAL for better concurrent read performance
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: enable FK: %w", err)
	}
	// Avoid "database is locked" under concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set busy_timeout: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS redeemed_keys (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		redeemed_by INTEGER NOT NULL,
		key         TEXT    NOT NULL,
		result      TEXT    NOT NULL,
		created_at  TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS friend_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		account    INTEGER NOT NULL,
		action     TEXT    NOT NULL CHECK(action IN ('accepted','declined','invited')),
		created_at TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS trade_decisions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		offer_id   TEXT    NOT NULL,
		action     TEXT    NOT NULL CHECK(action IN ('accepted','declined','skipped')),
		reason     TEXT    NOT NULL DEFAULT '',
		created_at TEXT    NOT NULL DEFAULT (datetime('now'))
	);
	`
	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// RedeemedKey is one recorded key redemption.
type RedeemedKey struct {
	ID         int64
	RedeemedBy model.AccountID
	Key        string
	Result     string
	CreatedAt  time.Time
}

// FriendEvent is one recorded friend-request decision.
type FriendEvent struct {
	ID        int64
	Account   model.AccountID
	Action    string
	CreatedAt time.Time
}

// TradeDecision is one recorded trade-offer decision.
type TradeDecision struct {
	ID        int64
	OfferID   string
	Action    string
	Reason    string
	CreatedAt time.Time
}

// RecordRedeemedKey records a key redemption and its result text.
func (j *Journal) RecordRedeemedKey(by model.AccountID, key, result string) error {
	_, err := j.db.Exec(
		"INSERT INTO redeemed_keys (redeemed_by, key, result) VALUES (?, ?, ?)",
		int64(by), key, result,
	)
	if err != nil {
		return fmt.Errorf("journal: record redeemed key: %w", err)
	}
	return nil
}

// RecordFriendEvent records a friend-request decision
// ("accepted", "declined", or "invited").
func (j *Journal) RecordFriendEvent(account model.AccountID, action string) error {
	_, err := j.db.Exec(
		"INSERT INTO friend_events (account, action) VALUES (?, ?)",
		int64(account), action,
	)
	if err != nil {
		return fmt.Errorf("journal: record friend event: %w", err)
	}
	return nil
}

// RecordTradeDecision records what was done with a trade offer and why.
func (j *Journal) RecordTradeDecision(offerID, action, reason string) error {
	_, err := j.db.Exec(
		"INSERT INTO trade_decisions (offer_id, action, reason) VALUES (?, ?, ?)",
		offerID, action, reason,
	)
	if err != nil {
		return fmt.Errorf("journal: record trade decision: %w", err)
	}
	return nil
}

// ListRedeemedKeys returns all recorded redemptions, newest first.
func (j *Journal) ListRedeemedKeys() ([]RedeemedKey, error) {
	rows, err := j.db.Query(
		"SELECT id, redeemed_by, key, result, created_at FROM redeemed_keys ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("journal: list redeemed keys: %w", err)
	}
	defer rows.Close()

	var out []RedeemedKey
	for rows.Next() {
		var r RedeemedKey
		var by int64
		var createdAt string
		if err := rows.Scan(&r.ID, &by, &r.Key, &r.Result, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan redeemed key: %w", err)
		}
		r.RedeemedBy = model.AccountID(by) //nolint:gosec // round-trips the stored id
		r.CreatedAt, _ = time.Parse(dbTimeLayout, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListFriendEvents returns all recorded friend events, newest first.
func (j *Journal) ListFriendEvents() ([]FriendEvent, error) {
	rows, err := j.db.Query(
		"SELECT id, account, action, created_at FROM friend_events ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("journal: list friend events: %w", err)
	}
	defer rows.Close()

	var out []FriendEvent
	for rows.Next() {
		var e FriendEvent
		var account int64
		var createdAt string
		if err := rows.Scan(&e.ID, &account, &e.Action, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan friend event: %w", err)
		}
		e.Account = model.AccountID(account) //nolint:gosec // round-trips the stored id
		e.CreatedAt, _ = time.Parse(dbTimeLayout, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListTradeDecisions returns all recorded trade decisions, newest first.
func (j *Journal) ListTradeDecisions() ([]TradeDecision, error) {
	rows, err := j.db.Query(
		"SELECT id, offer_id, action, reason, created_at FROM trade_decisions ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("journal: list trade decisions: %w", err)
	}
	defer rows.Close()

	var out []TradeDecision
	for rows.Next() {
		var d TradeDecision
		var createdAt string
		if err := rows.Scan(&d.ID, &d.OfferID, &d.Action, &d.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan trade decision: %w", err)
		}
		d.CreatedAt, _ = time.Parse(dbTimeLayout, createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}
