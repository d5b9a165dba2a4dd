package agent

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xetas/tradebot/pkg/config"
	"github.com/xetas/tradebot/pkg/farm"
	"github.com/xetas/tradebot/pkg/model"
	"github.com/xetas/tradebot/pkg/platform"
	"github.com/xetas/tradebot/pkg/sentry"
	"github.com/xetas/tradebot/pkg/trade"
)

const (
	adminID model.AccountID = 1
	userID  model.AccountID = 2
	selfID  model.AccountID = 9000
)

func testBot() *config.Bot {
	return &config.Bot{
		AccountName:          "cardbot",
		Password:             "hunter2",
		DisplayName:          "Card Dispenser",
		AcceptFriendRequests: true,
		GroupToInvite:        77,
		Admins:               []model.AccountID{adminID},
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// shortDelays shrinks the retry delays for the duration of one test. Tests
// touching them must not run in parallel.
func shortDelays(t *testing.T) {
	t.Helper()
	oldReconnect, oldWebRetry, oldRateLimit := reconnectDelay, webRetryDelay, rateLimitDelay
	reconnectDelay = 20 * time.Millisecond
	webRetryDelay = 20 * time.Millisecond
	rateLimitDelay = 60 * time.Millisecond
	t.Cleanup(func() {
		reconnectDelay, webRetryDelay, rateLimitDelay = oldReconnect, oldWebRetry, oldRateLimit
	})
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeWeb struct {
	mu           sync.Mutex
	authOK       bool
	refreshOK    bool
	nonces       []string
	refreshCalls int
	apiKeyCalls  int
	joins        []model.GroupID
	invites      []model.AccountID
	inviteGroups []model.GroupID
	queryTime    time.Time
	queryErr     error
	queryCalls   int
	exploreText  string
	exploreErr   error
}

func (w *fakeWeb) AuthenticateUser(_ model.AccountID, nonce string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nonces = append(w.nonces, nonce)
	return w.authOK
}

func (w *fakeWeb) RefreshSessionIfNeeded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refreshCalls++
	return w.refreshOK
}

func (w *fakeWeb) RequestAPIKey() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.apiKeyCalls++
	return nil
}

func (w *fakeWeb) JoinGroupIfNotJoinedAlready(groupID model.GroupID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.joins = append(w.joins, groupID)
	return nil
}

func (w *fakeWeb) QueryTime() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queryCalls++
	return w.queryTime, w.queryErr
}

func (w *fakeWeb) InviteToGroup(account model.AccountID, groupID model.GroupID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.invites = append(w.invites, account)
	w.inviteGroups = append(w.inviteGroups, groupID)
	return nil
}

func (w *fakeWeb) ExploreDiscoveryQueues() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exploreText, w.exploreErr
}

func (w *fakeWeb) authNonces() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.nonces...)
}

func (w *fakeWeb) refreshCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refreshCalls
}

func (w *fakeWeb) apiKeyCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.apiKeyCalls
}

func (w *fakeWeb) joinedGroups() []model.GroupID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.GroupID(nil), w.joins...)
}

func (w *fakeWeb) invitedAccounts() []model.AccountID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.AccountID(nil), w.invites...)
}

func (w *fakeWeb) queryCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queryCalls
}

type fakeCodes struct {
	mu     sync.Mutex
	code   string
	err    error
	aligns []time.Time
}

func (c *fakeCodes) Code(string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.err
}

func (c *fakeCodes) Align(platformTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aligns = append(c.aligns, platformTime)
}

func (c *fakeCodes) alignTimes() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.aligns...)
}

type fakeFarm struct {
	starts atomic.Int32
	stops  atomic.Int32
}

func (f *fakeFarm) Start(farm.GamesPlayer) { f.starts.Add(1) }
func (f *fakeFarm) Stop()                  { f.stops.Add(1) }

type redeemRecord struct {
	By     model.AccountID
	Key    string
	Result string
}

type friendRecord struct {
	Account model.AccountID
	Action  string
}

type fakeRecorder struct {
	mu       sync.Mutex
	redeemed []redeemRecord
	friends  []friendRecord
}

func (r *fakeRecorder) RecordRedeemedKey(by model.AccountID, key, result string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redeemed = append(r.redeemed, redeemRecord{By: by, Key: key, Result: result})
	return nil
}

func (r *fakeRecorder) RecordFriendEvent(account model.AccountID, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.friends = append(r.friends, friendRecord{Account: account, Action: action})
	return nil
}

func (r *fakeRecorder) redeemedList() []redeemRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]redeemRecord(nil), r.redeemed...)
}

func (r *fakeRecorder) friendList() []friendRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]friendRecord(nil), r.friends...)
}

type fakeChecker struct {
	mu      sync.Mutex
	calls   int
	selfIDs []model.AccountID
	sum     trade.Summary
	err     error
}

func (c *fakeChecker) CheckOffers(selfID model.AccountID) (trade.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.selfIDs = append(c.selfIDs, selfID)
	return c.sum, c.err
}

func (c *fakeChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeChecker) lastSelfID() model.AccountID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.selfIDs) == 0 {
		return 0
	}
	return c.selfIDs[len(c.selfIDs)-1]
}

type fixture struct {
	fake     *platform.Fake
	web      *fakeWeb
	codes    *fakeCodes
	farm     *fakeFarm
	rec      *fakeRecorder
	checker  *fakeChecker
	sentries *sentry.Store
	out      *syncBuffer
	input    *io.PipeWriter
	ag       *Agent
}

// startAgent builds a fully wired Agent over fakes and runs it until the
// test ends. mutate tweaks the fixture before wiring; setting codes to nil
// removes the authenticator.
func startAgent(t *testing.T, bot *config.Bot, mutate func(*fixture)) *fixture {
	t.Helper()
	shortDelays(t)

	f := &fixture{
		fake:     platform.NewFake(),
		web:      &fakeWeb{authOK: true, refreshOK: true},
		codes:    &fakeCodes{code: "R2T3V"},
		farm:     &fakeFarm{},
		rec:      &fakeRecorder{},
		checker:  &fakeChecker{},
		sentries: sentry.NewStore(t.TempDir()),
		out:      &syncBuffer{},
	}
	f.fake.Self = selfID
	if mutate != nil {
		mutate(f)
	}

	reader, writer := io.Pipe()
	f.input = writer

	deps := Dependencies{
		Client:   f.fake,
		Web:      f.web,
		Sentries: f.sentries,
		Farmer:   f.farm,
		Checker:  f.checker,
		Recorder: f.rec,
		Input:    reader,
		Output:   f.out,
	}
	if f.codes != nil {
		deps.Codes = f.codes
	}
	f.ag = New(bot, deps)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = f.ag.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		writer.Close()
	})
	return f
}

func (f *fixture) emit(ev platform.Event) { f.fake.Emit(ev) }

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	waitFor(t, "initial connect", func() bool { return f.fake.ConnectCount() == 1 })
	f.emit(platform.Event{Connected: &platform.ConnectedEvent{}})
	waitFor(t, "first logon", func() bool { return f.fake.LogOnCount() == 1 })
}

func (f *fixture) typeLine(t *testing.T, line string) {
	t.Helper()
	if _, err := f.input.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write console input: %v", err)
	}
}
