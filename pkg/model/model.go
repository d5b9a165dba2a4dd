// Package model defines the core domain types shared across the bot.
package model

// AccountID identifies an account on the platform. The zero value is
// "no account".
type AccountID uint64

// AccountKind classifies what an AccountID refers to.
type AccountKind int

const (
	AccountIndividual AccountKind = iota // a regular user account
	AccountClan                          // a group/community account
	AccountOther                         // game servers, anonymous accounts, ...
)

// GroupID identifies a community group on the platform.
type GroupID uint64

// PresenceState is the visible online state of the bot.
type PresenceState int

const (
	PresenceOffline PresenceState = iota
	PresenceOnline
	PresenceBusy
	PresenceAway
)

// EntryType distinguishes kinds of chat entries. Only ChatMessage entries
// carry user-visible text; the rest are signalling.
type EntryType int

const (
	EntryInvalid EntryType = iota
	EntryChatMessage
	EntryTyping
	EntryLeftConversation
)
