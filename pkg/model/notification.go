package model

// NotificationKind tags a server-pushed notification. The platform may add
// new kinds at any time; unrecognized kinds must be ignored.
type NotificationKind int

const (
	NotifyTrading NotificationKind = iota + 1
	NotifyComments
	NotifyItems
	NotifyInvites
	NotifyGifts
	NotifyOfflineMessages
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyTrading:
		return "trading"
	case NotifyComments:
		return "comments"
	case NotifyItems:
		return "items"
	case NotifyInvites:
		return "invites"
	case NotifyGifts:
		return "gifts"
	case NotifyOfflineMessages:
		return "offline_messages"
	default:
		return "unknown"
	}
}
