// Package platform abstracts the protocol client library the bot drives.
//
// The wire protocol itself lives in an external library; the bot only
// depends on this surface: issue requests, receive Events. Implementations
// must deliver events for a session in the order the transport produced
// them.
package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xetas/tradebot/pkg/model"
)

// LogonDetails is everything a logon attempt carries. SentryHash is nil on
// a machine the platform has not authorized yet; AuthCode and TwoFactorCode
// are empty unless the previous attempt was challenged.
type LogonDetails struct {
	AccountName   string
	Password      string
	SentryHash    []byte
	AuthCode      string // emailed one-time code
	TwoFactorCode string // mobile authenticator code
}

// MachineAuthAck acknowledges a MachineAuthEvent. Hash must be the content
// hash of the full sentry file after the write.
type MachineAuthAck struct {
	Offset          int64
	BytesWritten    int
	FileSize        int64
	FileName        string
	JobID           uint64
	OneTimePassword uint32
	Hash            []byte
	OK              bool
}

// Client is the surface of the external protocol library.
//
// All request methods are asynchronous: they enqueue protocol traffic and
// return; outcomes arrive later as Events. Events() is drained by a single
// goroutine (the bot's dispatch loop).
type Client interface {
	// Connect starts establishing a transport connection. The outcome is a
	// ConnectedEvent or, on failure, a DisconnectedEvent.
	Connect()

	// Disconnect tears the transport down. Emits a DisconnectedEvent.
	Disconnect()

	// LogOn issues a logon request on a connected transport. The outcome is
	// a LoggedOnEvent.
	LogOn(details LogonDetails)

	// SendMachineAuthResponse acknowledges a device-authorization update.
	SendMachineAuthResponse(ack MachineAuthAck)

	// SetPresence publishes the bot's visible online state.
	SetPresence(state model.PresenceState)

	// SetDisplayName publishes the bot's visible name.
	SetDisplayName(name string)

	// SendChatMessage sends a chat entry to another account.
	SendChatMessage(to model.AccountID, entry model.EntryType, text string)

	// AddFriend accepts a pending incoming request (or sends one).
	AddFriend(id model.AccountID)

	// RemoveFriend declines a pending incoming request (or unfriends).
	RemoveFriend(id model.AccountID)

	// SetGamesPlayed reports the set of apps the bot is "playing", used for
	// card farming. An empty slice stops playing.
	SetGamesPlayed(appIDs []uint32)

	// RedeemKey submits a product key. The outcome is a PurchaseEvent.
	RedeemKey(key string)

	// SelfID returns the bot's own account ID once logged on, zero before.
	SelfID() model.AccountID

	// Events is the stream of protocol events.
	Events() <-chan Event
}

var (
	driversMu sync.Mutex
	drivers   = map[string]func() (Client, error){}
)

// Register makes a client driver available under the given name. Drivers
// register from their package init, the way database drivers do; linking a
// driver package into the binary is what makes it selectable.
func Register(name string, open func() (Client, error)) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[name]; dup {
		panic("platform: driver registered twice: " + name)
	}
	drivers[name] = open
}

// Open instantiates the named client driver.
func Open(name string) (Client, error) {
	driversMu.Lock()
	open, ok := drivers[name]
	driversMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("platform: unknown driver %q (available: %s)", name, driverNames())
	}
	return open()
}

func driverNames() string {
	driversMu.Lock()
	defer driversMu.Unlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
