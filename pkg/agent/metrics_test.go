package agent

import (
	"encoding/json"
	"testing"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.Logons.Add(2)
	m.KeysRedeemed.Add(1)
	m.FriendsAccepted.Add(3)

	snap := m.Snapshot()
	if snap.Logons != 2 || snap.KeysRedeemed != 1 || snap.FriendsAccepted != 3 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("uptime seconds = %d", snap.UptimeSeconds)
	}
}

func TestMetricsJSONIsValid(t *testing.T) {
	m := NewMetrics()
	m.TradesChecked.Add(5)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(m.JSON()), &decoded); err != nil {
		t.Fatalf("metrics JSON invalid: %v", err)
	}
	if got, ok := decoded["trades_checked"].(float64); !ok || got != 5 {
		t.Errorf("trades_checked = %v", decoded["trades_checked"])
	}
}
