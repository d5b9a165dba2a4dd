package platform

import (
	"sync"

	"github.com/xetas/tradebot/pkg/model"
)

// SentChat records one SendChatMessage call on the Fake.
type SentChat struct {
	To    model.AccountID
	Entry model.EntryType
	Text  string
}

// Fake is an in-memory Client for tests. It records every call and lets the
// test inject events with Emit. Connect and LogOn do not emit anything on
// their own; tests drive the event stream explicitly. RedeemKey is the
// exception: it answers with a PurchaseEvent carrying RedeemResult, the way
// the real library answers a redemption request.
type Fake struct {
	mu     sync.Mutex
	events chan Event

	Self         model.AccountID
	RedeemResult model.PurchaseResult

	ConnectCalls    int
	DisconnectCalls int
	LogOns          []LogonDetails
	MachineAuthAcks []MachineAuthAck
	Presences       []model.PresenceState
	DisplayNames    []string
	Chats           []SentChat
	Added           []model.AccountID
	Removed         []model.AccountID
	GamesPlayed     [][]uint32
	RedeemedKeys    []string
}

// NewFake returns a Fake with a buffered event stream.
func NewFake() *Fake {
	return &Fake{events: make(chan Event, 64)}
}

func init() {
	Register("fake", func() (Client, error) { return NewFake(), nil })
}

// Emit injects an event as if the platform pushed it.
func (f *Fake) Emit(ev Event) { f.events <- ev }

func (f *Fake) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectCalls++
}

func (f *Fake) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DisconnectCalls++
}

func (f *Fake) LogOn(details LogonDetails) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogOns = append(f.LogOns, details)
}

func (f *Fake) SendMachineAuthResponse(ack MachineAuthAck) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MachineAuthAcks = append(f.MachineAuthAcks, ack)
}

func (f *Fake) SetPresence(state model.PresenceState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Presences = append(f.Presences, state)
}

func (f *Fake) SetDisplayName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DisplayNames = append(f.DisplayNames, name)
}

func (f *Fake) SendChatMessage(to model.AccountID, entry model.EntryType, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Chats = append(f.Chats, SentChat{To: to, Entry: entry, Text: text})
}

func (f *Fake) AddFriend(id model.AccountID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Added = append(f.Added, id)
}

func (f *Fake) RemoveFriend(id model.AccountID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removed = append(f.Removed, id)
}

func (f *Fake) SetGamesPlayed(appIDs []uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GamesPlayed = append(f.GamesPlayed, append([]uint32(nil), appIDs...))
}

func (f *Fake) RedeemKey(key string) {
	f.mu.Lock()
	f.RedeemedKeys = append(f.RedeemedKeys, key)
	result := f.RedeemResult
	f.mu.Unlock()
	f.events <- Event{Purchase: &PurchaseEvent{Result: result}}
}

func (f *Fake) SelfID() model.AccountID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Self
}

func (f *Fake) Events() <-chan Event { return f.events }

// LogOnCount returns how many logon attempts were issued.
func (f *Fake) LogOnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.LogOns)
}

// LastLogOn returns the most recent logon details, or a zero value.
func (f *Fake) LastLogOn() LogonDetails {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.LogOns) == 0 {
		return LogonDetails{}
	}
	return f.LogOns[len(f.LogOns)-1]
}

// ConnectCount returns how many times Connect was called.
func (f *Fake) ConnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ConnectCalls
}

// SentChats returns a copy of every chat message sent so far.
func (f *Fake) SentChats() []SentChat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentChat(nil), f.Chats...)
}

// Acks returns a copy of every machine-auth acknowledgement sent so far.
func (f *Fake) Acks() []MachineAuthAck {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MachineAuthAck(nil), f.MachineAuthAcks...)
}

// AddedIDs returns a copy of every AddFriend target so far.
func (f *Fake) AddedIDs() []model.AccountID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AccountID(nil), f.Added...)
}

// RemovedIDs returns a copy of every RemoveFriend target so far.
func (f *Fake) RemovedIDs() []model.AccountID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AccountID(nil), f.Removed...)
}

// PresenceList returns a copy of every published presence state so far.
func (f *Fake) PresenceList() []model.PresenceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PresenceState(nil), f.Presences...)
}

// DisplayNameList returns a copy of every published display name so far.
func (f *Fake) DisplayNameList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.DisplayNames...)
}

// RedeemedList returns a copy of every submitted key so far.
func (f *Fake) RedeemedList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.RedeemedKeys...)
}

var _ Client = (*Fake)(nil)
