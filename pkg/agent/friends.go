package agent

import (
	"log/slog"

	"github.com/xetas/tradebot/pkg/config"
	"github.com/xetas/tradebot/pkg/model"
	"github.com/xetas/tradebot/pkg/platform"
)

// GroupInviter invites an account to a community group.
type GroupInviter interface {
	InviteToGroup(account model.AccountID, groupID model.GroupID) error
}

// FriendRecorder persists friend-request decisions.
type FriendRecorder interface {
	RecordFriendEvent(account model.AccountID, action string) error
}

// FriendPolicy decides incoming friend requests. The accept toggle is
// runtime-mutable via chat command; like all agent state it is only
// touched on the dispatch goroutine.
type FriendPolicy struct {
	client   platform.Client
	bot      *config.Bot
	loop     *Loop
	inviter  GroupInviter
	recorder FriendRecorder
	metrics  *Metrics

	accept bool
}

// NewFriendPolicy wires the admission policy, seeding the accept toggle
// from the configuration.
func NewFriendPolicy(client platform.Client, bot *config.Bot, loop *Loop,
	inviter GroupInviter, recorder FriendRecorder, metrics *Metrics) *FriendPolicy {
	return &FriendPolicy{
		client:   client,
		bot:      bot,
		loop:     loop,
		inviter:  inviter,
		recorder: recorder,
		metrics:  metrics,
		accept:   bot.AcceptFriendRequests,
	}
}

// Accepting reports the current accept toggle.
func (p *FriendPolicy) Accepting() bool { return p.accept }

// ToggleAccept flips the accept toggle and returns the new value.
func (p *FriendPolicy) ToggleAccept() bool {
	p.accept = !p.accept
	return p.accept
}

// HandleFriendsList runs once per friends-list event: publish presence and
// display name, then decide every pending incoming request from an
// individual account in the order the event supplied them.
func (p *FriendPolicy) HandleFriendsList(ev *platform.FriendsListEvent) {
	p.client.SetPresence(model.PresenceOnline)
	if p.bot.DisplayName != "" {
		p.client.SetDisplayName(p.bot.DisplayName)
	}

	for _, entry := range ev.Entries {
		if entry.State != model.FriendRequestRecipient || entry.Kind != model.AccountIndividual {
			continue
		}
		if p.accept {
			p.acceptRequest(entry.Account)
		} else {
			p.declineRequest(entry.Account)
		}
	}
}

func (p *FriendPolicy) acceptRequest(account model.AccountID) {
	slog.Info("accepting friend request", "account", account)
	p.client.AddFriend(account)
	if p.metrics != nil {
		p.metrics.FriendsAccepted.Add(1)
	}
	p.record(account, "accepted")

	// Best effort: a failed invite never undoes the acceptance.
	if p.inviter == nil || p.bot.GroupToInvite == 0 {
		return
	}
	go func() {
		if err := p.inviter.InviteToGroup(account, p.bot.GroupToInvite); err != nil {
			slog.Warn("group invite failed", "account", account, "err", err)
			return
		}
		p.loop.Post(func() { p.record(account, "invited") })
	}()
}

func (p *FriendPolicy) declineRequest(account model.AccountID) {
	slog.Info("declining friend request", "account", account)
	p.client.RemoveFriend(account)
	if p.metrics != nil {
		p.metrics.FriendsDeclined.Add(1)
	}
	p.record(account, "declined")
}

func (p *FriendPolicy) record(account model.AccountID, action string) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordFriendEvent(account, action); err != nil {
		slog.Warn("record friend event failed", "account", account, "err", err)
	}
}
