package journal_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/xetas/tradebot/pkg/journal"
)

func openTestJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("close journal: %v", err)
		}
	})
	return j
}

var ignoreRowMeta = cmpopts.IgnoreFields

func TestRedeemedKeys(t *testing.T) {
	j := openTestJournal(t)

	if err := j.RecordRedeemedKey(2, "AAAAA-BBBBB", "ok"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := j.RecordRedeemedKey(7, "CCCCC-DDDDD", "already_owned"); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := j.ListRedeemedKeys()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []journal.RedeemedKey{
		{RedeemedBy: 7, Key: "CCCCC-DDDDD", Result: "already_owned"},
		{RedeemedBy: 2, Key: "AAAAA-BBBBB", Result: "ok"},
	}
	if diff := cmp.Diff(want, got, ignoreRowMeta(journal.RedeemedKey{}, "ID", "CreatedAt")); diff != "" {
		t.Errorf("redeemed keys mismatch (-want +got):\n%s", diff)
	}
}

func TestFriendEvents(t *testing.T) {
	j := openTestJournal(t)

	for _, action := range []string{"accepted", "invited", "declined"} {
		if err := j.RecordFriendEvent(5, action); err != nil {
			t.Fatalf("record %s: %v", action, err)
		}
	}
	// The schema only accepts the three known actions.
	if err := j.RecordFriendEvent(5, "poked"); err == nil {
		t.Error("unknown action was accepted")
	}

	got, err := j.ListFriendEvents()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []journal.FriendEvent{
		{Account: 5, Action: "declined"},
		{Account: 5, Action: "invited"},
		{Account: 5, Action: "accepted"},
	}
	if diff := cmp.Diff(want, got, ignoreRowMeta(journal.FriendEvent{}, "ID", "CreatedAt")); diff != "" {
		t.Errorf("friend events mismatch (-want +got):\n%s", diff)
	}
}

func TestTradeDecisions(t *testing.T) {
	j := openTestJournal(t)

	if err := j.RecordTradeDecision("100200", "accepted", "donation"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := j.RecordTradeDecision("100201", "declined", "offer would be held in escrow"); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := j.ListTradeDecisions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []journal.TradeDecision{
		{OfferID: "100201", Action: "declined", Reason: "offer would be held in escrow"},
		{OfferID: "100200", Action: "accepted", Reason: "donation"},
	}
	if diff := cmp.Diff(want, got, ignoreRowMeta(journal.TradeDecision{}, "ID", "CreatedAt")); diff != "" {
		t.Errorf("trade decisions mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyListsAreEmpty(t *testing.T) {
	j := openTestJournal(t)

	keys, err := j.ListRedeemedKeys()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("fresh journal has %d keys", len(keys))
	}
}
