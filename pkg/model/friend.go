package model

// FriendState is the relationship between the bot and another account as
// reported by the platform's friends list.
type FriendState int

const (
	FriendNone             FriendState = iota
	FriendBlocked                      // we blocked them
	FriendRequestRecipient             // they sent us a pending request
	FriendAccepted                     // mutual friends
	FriendRequestInitiator             // we sent them a pending request
	FriendIgnored                      // request ignored
)

func (s FriendState) String() string {
	switch s {
	case FriendNone:
		return "none"
	case FriendBlocked:
		return "blocked"
	case FriendRequestRecipient:
		return "request_recipient"
	case FriendAccepted:
		return "accepted"
	case FriendRequestInitiator:
		return "request_initiator"
	case FriendIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}
