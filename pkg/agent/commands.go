package agent

import (
	"log/slog"
	"strings"

	"github.com/xetas/tradebot/pkg/config"
	"github.com/xetas/tradebot/pkg/model"
	"github.com/xetas/tradebot/pkg/platform"
)

// commandPrefix marks a chat message as a command.
const commandPrefix = "!"

const unknownCommandText = "Unknown command, use !C or !COMMANDS to check for commands."

const redeemUsageText = "Usage: !REDEEM <key>"

const adminCommandsText = `Admin commands:
!C or !COMMANDS - this list
!GC or !GENERATECODE - current second-factor code
!R or !REDEEM <key> - redeem a product key
!E or !EXPLOREDISCOVERYQUEUES - explore the store discovery queue
!AFR or !ACCEPTFRIENDREQUESTS - toggle accepting friend requests`

const userCommandsText = `Commands:
!C or !COMMANDS - this list
!R or !REDEEM <key> - redeem a product key
!RULES - trade rules`

const tradeRulesText = `Trade rules:
- Donations are welcome.
- Card trades 1:1 must be from the same set.
- Card trades 2:1 are accepted in the bot's favour.
- Escrowed trades are declined.`

// QueueExplorer triggers a discovery-queue exploration and reports a
// user-facing summary.
type QueueExplorer interface {
	ExploreDiscoveryQueues() (string, error)
}

// RedeemRecorder persists key redemptions.
type RedeemRecorder interface {
	RecordRedeemedKey(by model.AccountID, key, result string) error
}

type pendingRedeem struct {
	sender model.AccountID
	key    string
}

// Interpreter parses chat text into commands, resolves the caller's
// privilege tier, and dispatches to the collaborating subsystems. All
// methods run on the dispatch goroutine.
type Interpreter struct {
	client   platform.Client
	bot      *config.Bot
	loop     *Loop
	codes    CodeProvider
	explorer QueueExplorer
	recorder RedeemRecorder
	policy   *FriendPolicy
	metrics  *Metrics

	// redemptions in flight, answered by Purchase events in request order
	redeems []pendingRedeem
}

// NewInterpreter wires the command interpreter. explorer, recorder, codes,
// and policy may be nil; the corresponding commands degrade gracefully.
func NewInterpreter(client platform.Client, bot *config.Bot, loop *Loop, codes CodeProvider,
	explorer QueueExplorer, recorder RedeemRecorder, policy *FriendPolicy, metrics *Metrics) *Interpreter {
	return &Interpreter{
		client:   client,
		bot:      bot,
		loop:     loop,
		codes:    codes,
		explorer: explorer,
		recorder: recorder,
		policy:   policy,
		metrics:  metrics,
	}
}

// HandleMessage processes one incoming chat entry. Non-message entries
// (typing indicators and the like) and non-command text are ignored.
func (i *Interpreter) HandleMessage(ev *platform.FriendMessageEvent) {
	if ev.EntryType != model.EntryChatMessage {
		return
	}
	if !strings.HasPrefix(ev.Text, commandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(ev.Text, commandPrefix))
	if len(fields) == 0 {
		i.reply(ev.Sender, unknownCommandText)
		return
	}
	token := strings.ToUpper(fields[0])
	args := fields[1:]

	if i.metrics != nil {
		i.metrics.CommandsHandled.Add(1)
	}

	if i.bot.IsAdmin(ev.Sender) {
		i.dispatchAdmin(ev.Sender, token, args)
		return
	}
	i.dispatchUser(ev.Sender, token, args)
}

func (i *Interpreter) dispatchAdmin(sender model.AccountID, token string, args []string) {
	switch token {
	case "C", "COMMANDS":
		i.reply(sender, adminCommandsText)
	case "GC", "GENERATECODE":
		i.generateCode(sender)
	case "R", "REDEEM":
		i.redeem(sender, args)
	case "E", "EXPLOREDISCOVERYQUEUES":
		i.explore(sender)
	case "AFR", "ACCEPTFRIENDREQUESTS":
		i.toggleFriendRequests(sender)
	default:
		i.reply(sender, unknownCommandText)
	}
}

func (i *Interpreter) dispatchUser(sender model.AccountID, token string, args []string) {
	switch token {
	case "C", "COMMANDS":
		i.reply(sender, userCommandsText)
	case "R", "REDEEM":
		i.redeem(sender, args)
	case "RULES":
		i.reply(sender, tradeRulesText)
	default:
		i.reply(sender, unknownCommandText)
	}
}

func (i *Interpreter) generateCode(sender model.AccountID) {
	if i.codes == nil {
		i.reply(sender, "No authenticator is enrolled for this account.")
		return
	}
	code, err := i.codes.Code(i.bot.AccountName)
	if err != nil {
		slog.Warn("second-factor code generation failed", "err", err)
		i.reply(sender, "Code generation failed.")
		return
	}
	if code == "" {
		i.reply(sender, "No authenticator is enrolled for this account.")
		return
	}
	i.reply(sender, code)
}

// redeem submits a key; the platform answers with a Purchase event which
// HandlePurchase pairs with this request.
func (i *Interpreter) redeem(sender model.AccountID, args []string) {
	if len(args) == 0 {
		i.reply(sender, redeemUsageText)
		return
	}
	i.redeems = append(i.redeems, pendingRedeem{sender: sender, key: args[0]})
	i.client.RedeemKey(args[0])
}

// HandlePurchase answers the oldest pending redemption with the result
// text and records it in the journal.
func (i *Interpreter) HandlePurchase(ev *platform.PurchaseEvent) {
	if len(i.redeems) == 0 {
		slog.Debug("purchase response with no pending redemption", "result", ev.Result)
		return
	}
	pending := i.redeems[0]
	i.redeems = i.redeems[1:]

	if i.metrics != nil {
		i.metrics.KeysRedeemed.Add(1)
	}
	i.reply(pending.sender, ev.Result.Text())

	if i.recorder != nil {
		if err := i.recorder.RecordRedeemedKey(pending.sender, pending.key, ev.Result.String()); err != nil {
			slog.Warn("record redeemed key failed", "err", err)
		}
	}
}

func (i *Interpreter) explore(sender model.AccountID) {
	if i.explorer == nil {
		i.reply(sender, "Discovery queue exploration is not available.")
		return
	}
	go func() {
		text, err := i.explorer.ExploreDiscoveryQueues()
		if err != nil {
			slog.Warn("discovery queue exploration failed", "err", err)
			text = "Discovery queue exploration failed."
		}
		i.loop.Post(func() { i.reply(sender, text) })
	}()
}

func (i *Interpreter) toggleFriendRequests(sender model.AccountID) {
	if i.policy == nil {
		return
	}
	if i.policy.ToggleAccept() {
		i.reply(sender, "Friend requests are now accepted.")
	} else {
		i.reply(sender, "Friend requests are now declined.")
	}
}

func (i *Interpreter) reply(to model.AccountID, text string) {
	i.client.SendChatMessage(to, model.EntryChatMessage, text)
}
