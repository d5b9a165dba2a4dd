package platform

import "github.com/xetas/tradebot/pkg/model"

// Event wraps every event the client library can emit.
// Exactly one of these fields is set per event.
type Event struct {
	Connected     *ConnectedEvent     `json:"connected,omitempty"`
	Disconnected  *DisconnectedEvent  `json:"disconnected,omitempty"`
	LoggedOn      *LoggedOnEvent      `json:"logged_on,omitempty"`
	LoggedOff     *LoggedOffEvent     `json:"logged_off,omitempty"`
	MachineAuth   *MachineAuthEvent   `json:"machine_auth,omitempty"`
	FriendsList   *FriendsListEvent   `json:"friends_list,omitempty"`
	FriendMessage *FriendMessageEvent `json:"friend_message,omitempty"`
	Notifications *NotificationsEvent `json:"notifications,omitempty"`
	Purchase      *PurchaseEvent      `json:"purchase,omitempty"`
}

// ConnectedEvent fires when the transport connection is established.
type ConnectedEvent struct{}

// DisconnectedEvent fires when the transport drops, whether requested or not.
type DisconnectedEvent struct {
	UserInitiated bool `json:"user_initiated"`
}

// LoggedOnEvent carries the platform's answer to a logon attempt.
type LoggedOnEvent struct {
	Result      model.LogonResult `json:"result"`
	ResultCode  int               `json:"result_code,omitempty"` // raw code, for unrecognized results
	WebNonce    string            `json:"web_nonce,omitempty"`   // one-time nonce for web-session auth
	EmailDomain string            `json:"email_domain,omitempty"`
}

// LoggedOffEvent fires on an explicit server-side logoff.
type LoggedOffEvent struct {
	Reason string `json:"reason"`
}

// MachineAuthEvent asks the client to merge a device-authorization blob into
// its sentry file and acknowledge with the resulting content hash.
type MachineAuthEvent struct {
	Offset          int64  `json:"offset"`
	Data            []byte `json:"data"`
	BytesToWrite    int    `json:"bytes_to_write"`
	FileName        string `json:"file_name"`
	JobID           uint64 `json:"job_id"`
	OneTimePassword uint32 `json:"one_time_password"`
}

// FriendEntry is one relationship row in a friends-list event.
type FriendEntry struct {
	Account model.AccountID   `json:"account"`
	Kind    model.AccountKind `json:"kind"`
	State   model.FriendState `json:"state"`
}

// FriendsListEvent fires when the friends list is loaded or changes.
type FriendsListEvent struct {
	Entries []FriendEntry `json:"entries"`
}

// FriendMessageEvent is an incoming chat entry from a friend.
type FriendMessageEvent struct {
	Sender    model.AccountID `json:"sender"`
	EntryType model.EntryType `json:"entry_type"`
	Text      string          `json:"text"`
}

// NotificationsEvent is a batch of server-pushed notification kinds.
type NotificationsEvent struct {
	Kinds []model.NotificationKind `json:"kinds"`
}

// PurchaseEvent reports the outcome of a key redemption.
type PurchaseEvent struct {
	Result model.PurchaseResult `json:"result"`
	AppIDs []uint32             `json:"app_ids,omitempty"` // granted licenses
}
