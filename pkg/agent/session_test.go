package agent

import (
	"bytes"
	"crypto/sha1"
	"strings"
	"testing"
	"time"

	"github.com/xetas/tradebot/pkg/model"
	"github.com/xetas/tradebot/pkg/platform"
)

func TestStartConnectsAndLogsOn(t *testing.T) {
	f := startAgent(t, testBot(), nil)
	f.connect(t)

	details := f.fake.LastLogOn()
	if details.AccountName != "cardbot" || details.Password != "hunter2" {
		t.Errorf("logon credentials = %q/%q, want cardbot/hunter2", details.AccountName, details.Password)
	}
	if details.SentryHash != nil {
		t.Errorf("fresh machine sent sentry hash %x, want none", details.SentryHash)
	}
	if details.AuthCode != "" || details.TwoFactorCode != "" {
		t.Errorf("unchallenged logon carried codes %q/%q", details.AuthCode, details.TwoFactorCode)
	}
}

func TestLogonOKStartsWebSessionAndFarm(t *testing.T) {
	f := startAgent(t, testBot(), nil)
	f.connect(t)

	f.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{Result: model.LogonOK, WebNonce: "n0nce"}})

	waitFor(t, "web auth", func() bool { return len(f.web.authNonces()) == 1 })
	if got := f.web.authNonces()[0]; got != "n0nce" {
		t.Errorf("web auth nonce = %q, want n0nce", got)
	}
	waitFor(t, "farm start", func() bool { return f.farm.starts.Load() == 1 })
	waitFor(t, "api key request", func() bool { return f.web.apiKeyCount() == 1 })

	joins := f.web.joinedGroups()
	if len(joins) != 1 || joins[0] != 77 {
		t.Errorf("joined groups = %v, want [77]", joins)
	}
	if got := f.ag.Metrics().Logons.Load(); got != 1 {
		t.Errorf("logon counter = %d, want 1", got)
	}
}

func TestWebAuthFailureRetriesUntilRefreshSucceeds(t *testing.T) {
	f := startAgent(t, testBot(), func(f *fixture) {
		f.web.authOK = false
		f.web.refreshOK = true
	})
	f.connect(t)

	f.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{Result: model.LogonOK, WebNonce: "n0nce"}})

	waitFor(t, "refresh retry", func() bool { return f.web.refreshCount() >= 1 })
	waitFor(t, "farm start after refresh", func() bool { return f.farm.starts.Load() == 1 })
}

func TestTwoFactorChallengeUsesEnrolledAuthenticator(t *testing.T) {
	f := startAgent(t, testBot(), nil)
	f.connect(t)

	f.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{Result: model.LogonTwoFactorRequired}})

	waitFor(t, "second logon", func() bool { return f.fake.LogOnCount() == 2 })
	if got := f.fake.LastLogOn().TwoFactorCode; got != "R2T3V" {
		t.Errorf("two-factor code = %q, want R2T3V", got)
	}
}

func TestTwoFactorMismatchAlignsClockThenRetries(t *testing.T) {
	reference := time.Unix(1700000000, 0)
	f := startAgent(t, testBot(), func(f *fixture) {
		f.web.queryTime = reference
	})
	f.connect(t)

	f.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{Result: model.LogonTwoFactorMismatch}})

	waitFor(t, "retry after alignment", func() bool { return f.fake.LogOnCount() == 2 })
	if got := f.web.queryCount(); got != 1 {
		t.Errorf("platform time queried %d times, want 1", got)
	}
	aligns := f.codes.alignTimes()
	if len(aligns) != 1 || !aligns[0].Equal(reference) {
		t.Errorf("clock alignments = %v, want one at %v", aligns, reference)
	}
	if got := f.fake.LastLogOn().TwoFactorCode; got != "R2T3V" {
		t.Errorf("two-factor code after alignment = %q, want R2T3V", got)
	}
}

func TestEmailChallengeReadsOperatorCode(t *testing.T) {
	f := startAgent(t, testBot(), func(f *fixture) {
		f.codes = nil
	})
	f.connect(t)

	f.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{
		Result:      model.LogonEmailCodeRequired,
		EmailDomain: "example.org",
	}})
	waitFor(t, "email prompt", func() bool { return strings.Contains(f.out.String(), "example.org") })

	f.typeLine(t, "SECRET1")
	waitFor(t, "logon with email code", func() bool { return f.fake.LogOnCount() == 2 })
	if got := f.fake.LastLogOn().AuthCode; got != "SECRET1" {
		t.Errorf("email code = %q, want SECRET1", got)
	}

	// No authenticator enrolled, so the second-factor challenge falls back
	// to the operator too. The email code must not be re-sent.
	f.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{Result: model.LogonTwoFactorRequired}})
	waitFor(t, "second-factor prompt", func() bool {
		return strings.Contains(f.out.String(), "enter your code")
	})
	f.typeLine(t, "ABCDE")
	waitFor(t, "logon with operator code", func() bool { return f.fake.LogOnCount() == 3 })

	details := f.fake.LastLogOn()
	if details.TwoFactorCode != "ABCDE" {
		t.Errorf("two-factor code = %q, want ABCDE", details.TwoFactorCode)
	}
	if details.AuthCode != "" {
		t.Errorf("email code re-sent as %q, want empty", details.AuthCode)
	}
}

func TestRateLimitedLogonRetriesAfterDelay(t *testing.T) {
	f := startAgent(t, testBot(), nil)
	f.connect(t)

	f.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{Result: model.LogonRateLimited}})

	time.Sleep(20 * time.Millisecond)
	if got := f.fake.LogOnCount(); got != 1 {
		t.Fatalf("logon retried before the backoff elapsed, count = %d", got)
	}
	waitFor(t, "retry after backoff", func() bool { return f.fake.LogOnCount() == 2 })
}

func TestTransportDropSchedulesReconnect(t *testing.T) {
	f := startAgent(t, testBot(), nil)
	f.connect(t)
	f.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{Result: model.LogonOK}})
	waitFor(t, "farm start", func() bool { return f.farm.starts.Load() == 1 })

	f.emit(platform.Event{Disconnected: &platform.DisconnectedEvent{}})

	waitFor(t, "reconnect", func() bool { return f.fake.ConnectCount() == 2 })
	waitFor(t, "farm stop", func() bool { return f.farm.stops.Load() >= 1 })
	if got := f.ag.Metrics().Reconnects.Load(); got != 1 {
		t.Errorf("reconnect counter = %d, want 1", got)
	}
}

func TestServerLogoffSuppressesReconnect(t *testing.T) {
	f := startAgent(t, testBot(), nil)
	f.connect(t)

	f.emit(platform.Event{LoggedOff: &platform.LoggedOffEvent{Reason: "banned"}})
	f.emit(platform.Event{Disconnected: &platform.DisconnectedEvent{}})

	time.Sleep(100 * time.Millisecond)
	if got := f.fake.ConnectCount(); got != 1 {
		t.Errorf("reconnected after explicit logoff, connects = %d", got)
	}
}

func TestRequestedDisconnectSuppressesReconnect(t *testing.T) {
	f := startAgent(t, testBot(), nil)
	f.connect(t)

	f.emit(platform.Event{Disconnected: &platform.DisconnectedEvent{UserInitiated: true}})

	time.Sleep(100 * time.Millisecond)
	if got := f.fake.ConnectCount(); got != 1 {
		t.Errorf("reconnected after requested disconnect, connects = %d", got)
	}
}

func TestMachineAuthWritesSentryAndAcknowledges(t *testing.T) {
	f := startAgent(t, testBot(), nil)
	f.connect(t)

	data := []byte("sentryblob_with_padding")
	f.emit(platform.Event{MachineAuth: &platform.MachineAuthEvent{
		Offset:          0,
		Data:            data,
		BytesToWrite:    10,
		FileName:        "cardbot.sentry",
		JobID:           42,
		OneTimePassword: 7,
	}})

	waitFor(t, "machine auth ack", func() bool { return len(f.fake.Acks()) == 1 })
	ack := f.fake.Acks()[0]

	want := sha1.Sum(data[:10])
	if !ack.OK {
		t.Fatal("ack reports failure")
	}
	if ack.BytesWritten != 10 || ack.FileSize != 10 {
		t.Errorf("ack wrote %d bytes of file size %d, want 10/10", ack.BytesWritten, ack.FileSize)
	}
	if !bytes.Equal(ack.Hash, want[:]) {
		t.Errorf("ack hash = %x, want %x", ack.Hash, want)
	}
	if ack.JobID != 42 || ack.OneTimePassword != 7 || ack.FileName != "cardbot.sentry" {
		t.Errorf("ack did not echo job fields: %+v", ack)
	}
	if got := f.sentries.Hash("cardbot"); !bytes.Equal(got, want[:]) {
		t.Errorf("stored sentry hash = %x, want %x", got, want)
	}

	// The next logon presents the fresh hash.
	f.emit(platform.Event{Disconnected: &platform.DisconnectedEvent{}})
	waitFor(t, "reconnect", func() bool { return f.fake.ConnectCount() == 2 })
	f.emit(platform.Event{Connected: &platform.ConnectedEvent{}})
	waitFor(t, "second logon", func() bool { return f.fake.LogOnCount() == 2 })
	if got := f.fake.LastLogOn().SentryHash; !bytes.Equal(got, want[:]) {
		t.Errorf("logon sentry hash = %x, want %x", got, want)
	}
}
