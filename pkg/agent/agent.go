// Package agent wires the bot: one dispatch goroutine pumps protocol
// events and routes them to the session controller, the friend admission
// policy, the notification router, and the chat command interpreter.
//
// The dispatch goroutine is the only writer of session state. Anything
// slow (web calls, trade checks, operator input) runs elsewhere and posts
// its completion back onto the dispatch loop.
package agent

import (
	"context"
	"io"
	"os"

	"github.com/xetas/tradebot/pkg/config"
	"github.com/xetas/tradebot/pkg/platform"
	"github.com/xetas/tradebot/pkg/sentry"
)

// WebSurface bundles everything the agent needs from the platform's web
// side. *web.Session implements it.
type WebSurface interface {
	WebAuthenticator
	GroupInviter
	QueueExplorer
}

// ActivityRecorder bundles the journal writes the agent produces.
// *journal.Journal implements it.
type ActivityRecorder interface {
	RedeemRecorder
	FriendRecorder
}

// Dependencies are the collaborators an Agent is wired with. Client is
// required; everything else may be nil and the corresponding behaviour is
// skipped.
type Dependencies struct {
	Client   platform.Client
	Web      WebSurface
	Codes    CodeProvider
	Sentries *sentry.Store
	Farmer   FarmControl
	Checker  OfferChecker
	Recorder ActivityRecorder
	Metrics  *Metrics

	Input  io.Reader // operator console, default os.Stdin
	Output io.Writer // prompt output, default os.Stdout
}

// Agent is the composition root for one bot account.
type Agent struct {
	bot     *config.Bot
	loop    *Loop
	metrics *Metrics

	controller  *Controller
	policy      *FriendPolicy
	router      *Router
	interpreter *Interpreter
}

// New wires an Agent for the given bot configuration.
func New(bot *config.Bot, deps Dependencies) *Agent {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if deps.Input == nil {
		deps.Input = os.Stdin
	}
	if deps.Output == nil {
		deps.Output = os.Stdout
	}

	a := &Agent{bot: bot, metrics: deps.Metrics}
	a.loop = newLoop(deps.Client.Events(), a.route)
	prompter := NewPrompter(deps.Input, deps.Output, a.loop.Post)

	a.controller = NewController(deps.Client, bot, a.loop, prompter,
		deps.Sentries, deps.Codes, deps.Web, deps.Farmer, deps.Metrics)
	a.policy = NewFriendPolicy(deps.Client, bot, a.loop, deps.Web, deps.Recorder, deps.Metrics)
	a.router = NewRouter(deps.Client, a.loop, deps.Checker, deps.Metrics)
	a.interpreter = NewInterpreter(deps.Client, bot, a.loop, deps.Codes,
		deps.Web, deps.Recorder, a.policy, deps.Metrics)

	return a
}

// route maps each event category to its handler. Exactly one field of an
// Event is set; events with none set are dropped.
func (a *Agent) route(ev platform.Event) {
	switch {
	case ev.Connected != nil:
		a.controller.HandleConnected(ev.Connected)
	case ev.Disconnected != nil:
		a.controller.HandleDisconnected(ev.Disconnected)
	case ev.LoggedOn != nil:
		a.controller.HandleLoggedOn(ev.LoggedOn)
	case ev.LoggedOff != nil:
		a.controller.HandleLoggedOff(ev.LoggedOff)
	case ev.MachineAuth != nil:
		a.controller.HandleMachineAuth(ev.MachineAuth)
	case ev.FriendsList != nil:
		a.policy.HandleFriendsList(ev.FriendsList)
	case ev.FriendMessage != nil:
		a.interpreter.HandleMessage(ev.FriendMessage)
	case ev.Notifications != nil:
		a.router.HandleNotifications(ev.Notifications)
	case ev.Purchase != nil:
		a.interpreter.HandlePurchase(ev.Purchase)
	}
}

// Start validates the configuration, connects, and runs the dispatch loop
// until ctx is cancelled. It blocks; run it as the main goroutine of the
// process (or of a test).
func (a *Agent) Start(ctx context.Context) error {
	if err := a.bot.Validate(); err != nil {
		return err
	}

	a.controller.Start()
	a.loop.Run(ctx)
	return nil
}

// Metrics exposes the agent's counters, e.g. for the HTTP endpoint.
func (a *Agent) Metrics() *Metrics { return a.metrics }

// Session returns a copy of the current session state.
func (a *Agent) Session() SessionState { return a.controller.State() }
