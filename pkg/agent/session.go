package agent

import (
	"log/slog"
	"time"

	"github.com/xetas/tradebot/pkg/config"
	"github.com/xetas/tradebot/pkg/farm"
	"github.com/xetas/tradebot/pkg/model"
	"github.com/xetas/tradebot/pkg/platform"
	"github.com/xetas/tradebot/pkg/sentry"
)

// Delays are package variables so tests can shrink them.
var (
	reconnectDelay = 5 * time.Second
	webRetryDelay  = 5 * time.Second
	rateLimitDelay = 5 * time.Minute
)

// Phase is the session lifecycle phase.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseLoggingOn
	PhaseAwaitingEmailCode
	PhaseAwaitingSecondFactor
	PhaseRateLimited
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseLoggingOn:
		return "logging_on"
	case PhaseAwaitingEmailCode:
		return "awaiting_email_code"
	case PhaseAwaitingSecondFactor:
		return "awaiting_second_factor"
	case PhaseRateLimited:
		return "rate_limited"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// SessionState is the controller's mutable session record. It is owned by
// the Controller and mutated only on the dispatch goroutine; everything
// else sees copies.
type SessionState struct {
	Phase            Phase
	EmailCode        string
	TwoFactorCode    string
	WebNonce         string
	RateLimitedUntil time.Time
}

// WebAuthenticator is the slice of the web surface the controller drives
// after a successful logon.
type WebAuthenticator interface {
	AuthenticateUser(selfID model.AccountID, nonce string) bool
	RefreshSessionIfNeeded() bool
	RequestAPIKey() error
	JoinGroupIfNotJoinedAlready(groupID model.GroupID) error
	QueryTime() (time.Time, error)
}

// CodeProvider produces second-factor codes and absorbs observed clock
// skew.
type CodeProvider interface {
	Code(account string) (string, error)
	Align(platformTime time.Time)
}

// FarmControl starts and stops the card-farming loop.
type FarmControl interface {
	Start(player farm.GamesPlayer)
	Stop()
}

// Controller owns the session lifecycle: connect, logon, challenge
// resolution, rate-limit backoff, reconnect. Every method runs on the
// dispatch goroutine; slow work is pushed to worker goroutines whose
// completions are posted back.
type Controller struct {
	client   platform.Client
	bot      *config.Bot
	loop     *Loop
	prompter *Prompter
	sentries *sentry.Store
	codes    CodeProvider
	web      WebAuthenticator
	farm     FarmControl
	metrics  *Metrics

	state      SessionState
	sentryHash []byte
	loggedOff  bool // explicit server logoff seen; suppresses auto-reconnect
}

// NewController wires a session controller. Any of codes, web, and farm
// may be nil in tests.
func NewController(client platform.Client, bot *config.Bot, loop *Loop, prompter *Prompter,
	sentries *sentry.Store, codes CodeProvider, webauth WebAuthenticator, farmer FarmControl,
	metrics *Metrics) *Controller {
	return &Controller{
		client:   client,
		bot:      bot,
		loop:     loop,
		prompter: prompter,
		sentries: sentries,
		codes:    codes,
		web:      webauth,
		farm:     farmer,
		metrics:  metrics,
	}
}

// State returns a copy of the current session state.
func (c *Controller) State() SessionState {
	return c.state
}

// Start loads the cached sentry hash and begins connecting.
func (c *Controller) Start() {
	if c.sentries != nil {
		c.sentryHash = c.sentries.Hash(c.bot.AccountName)
	}
	if c.sentryHash != nil {
		slog.Info("loaded device authorization", "account", c.bot.AccountName)
	}

	slog.Info("connecting to platform", "account", c.bot.AccountName)
	c.state.Phase = PhaseConnecting
	c.client.Connect()
}

// HandleConnected reacts to a transport-connected event by logging on with
// the cached credential and device authorization.
func (c *Controller) HandleConnected(*platform.ConnectedEvent) {
	slog.Info("connected to platform")
	c.state.Phase = PhaseConnected
	c.loggedOff = false
	c.logon()
}

// logon issues a logon request with whatever challenge codes are pending.
// The email code is single-use: it is cleared as soon as the attempt is
// issued, matching the platform's expectation of a fresh code per retry.
func (c *Controller) logon() {
	details := platform.LogonDetails{
		AccountName:   c.bot.AccountName,
		Password:      c.bot.Password,
		SentryHash:    c.sentryHash,
		AuthCode:      c.state.EmailCode,
		TwoFactorCode: c.state.TwoFactorCode,
	}
	c.state.EmailCode = ""
	c.state.Phase = PhaseLoggingOn
	c.client.LogOn(details)
}

// HandleLoggedOn resolves the platform's answer to a logon attempt.
func (c *Controller) HandleLoggedOn(ev *platform.LoggedOnEvent) {
	c.state.WebNonce = ev.WebNonce

	switch ev.Result {
	case model.LogonOK:
		slog.Info("successfully logged on")
		c.state.Phase = PhaseAuthenticated
		c.state.TwoFactorCode = ""
		if c.metrics != nil {
			c.metrics.Logons.Add(1)
		}
		c.startWebSession(ev.WebNonce)

	case model.LogonEmailCodeRequired, model.LogonInvalidEmailCode:
		c.state.Phase = PhaseAwaitingEmailCode
		c.promptEmailCode(ev)

	case model.LogonTwoFactorRequired:
		c.state.Phase = PhaseAwaitingSecondFactor
		c.resolveTwoFactor()

	case model.LogonTwoFactorMismatch:
		// The code was numerically valid but stale: align the clock against
		// platform time once, then generate a fresh code.
		c.state.Phase = PhaseAwaitingSecondFactor
		c.alignClockAndRetry()

	case model.LogonRateLimited:
		slog.Error("logon rate limited, retrying in 5 minutes")
		c.state.Phase = PhaseRateLimited
		c.state.RateLimitedUntil = time.Now().Add(rateLimitDelay)
		c.loop.PostAfter(rateLimitDelay, func() {
			if c.state.Phase == PhaseRateLimited {
				c.logon()
			}
		})

	default:
		slog.Error("unable to log on", "result", ev.Result, "code", ev.ResultCode)
		// Connection stays open but unauthenticated until the transport
		// produces something new.
		c.state.Phase = PhaseConnected
	}
}

func (c *Controller) promptEmailCode(ev *platform.LoggedOnEvent) {
	prompt := "Enter the auth code sent to the email at: " + ev.EmailDomain
	if ev.Result == model.LogonInvalidEmailCode {
		prompt = "Enter the new auth code sent to the email at: " + ev.EmailDomain
	}
	c.prompter.Request(func(code string) {
		if c.state.Phase != PhaseAwaitingEmailCode {
			return
		}
		c.state.EmailCode = code
		c.logon()
	}, prompt)
}

// resolveTwoFactor asks the code provider first and only falls back to the
// operator when the account has no enrolled authenticator.
func (c *Controller) resolveTwoFactor() {
	code := ""
	if c.codes != nil {
		var err error
		if code, err = c.codes.Code(c.bot.AccountName); err != nil {
			slog.Warn("second-factor code generation failed", "err", err)
			code = ""
		}
	}

	if code == "" {
		c.prompter.Request(func(code string) {
			if c.state.Phase != PhaseAwaitingSecondFactor {
				return
			}
			c.state.TwoFactorCode = code
			c.logon()
		},
			"Link the account to the authenticator via the bot or add the enrolment file to the secrets directory as 'account.auth'.",
			"If your phone is already linked enter your code:")
		return
	}

	slog.Info("second-factor code generated")
	c.state.TwoFactorCode = code
	c.logon()
}

func (c *Controller) alignClockAndRetry() {
	go func() {
		t, err := c.web.QueryTime()
		c.loop.Post(func() {
			if err != nil {
				slog.Warn("platform time query failed", "err", err)
			} else if c.codes != nil {
				c.codes.Align(t)
			}
			c.resolveTwoFactor()
		})
	}()
}

// startWebSession runs the post-logon sequence off-thread: web auth, API
// key, group membership, farming. Only the web auth step is retried (every
// 5 seconds via RefreshSessionIfNeeded) until it succeeds.
func (c *Controller) startWebSession(nonce string) {
	if c.web == nil {
		return
	}
	go func() {
		ok := c.web.AuthenticateUser(c.client.SelfID(), nonce)
		c.loop.Post(func() { c.onWebAuth(ok) })
	}()
}

func (c *Controller) onWebAuth(ok bool) {
	if c.state.Phase != PhaseAuthenticated {
		return // session moved on while the worker was out
	}
	if !ok {
		slog.Warn("could not authenticate web session, retrying in 5 seconds")
		c.loop.PostAfter(webRetryDelay, c.refreshWebSession)
		return
	}

	slog.Info("web session authenticated")
	go func() {
		if err := c.web.RequestAPIKey(); err != nil {
			slog.Warn("api key request failed", "err", err)
		}
		if err := c.web.JoinGroupIfNotJoinedAlready(c.bot.GroupToInvite); err != nil {
			slog.Warn("group join failed", "err", err)
		}
		c.loop.Post(func() {
			if c.state.Phase == PhaseAuthenticated && c.farm != nil {
				c.farm.Start(c.client)
			}
		})
	}()
}

func (c *Controller) refreshWebSession() {
	if c.state.Phase != PhaseAuthenticated {
		return
	}
	go func() {
		ok := c.web.RefreshSessionIfNeeded()
		c.loop.Post(func() { c.onWebAuth(ok) })
	}()
}

// HandleLoggedOff reacts to an explicit server-side logoff. Unlike a
// transport drop this does not auto-reconnect.
func (c *Controller) HandleLoggedOff(ev *platform.LoggedOffEvent) {
	slog.Error("logged off by platform", "reason", ev.Reason)
	c.loggedOff = true
	c.state.Phase = PhaseDisconnected
	if c.farm != nil {
		c.farm.Stop()
	}
}

// HandleDisconnected reacts to a transport drop by scheduling a reconnect,
// unless the drop followed an explicit logoff or was requested locally.
func (c *Controller) HandleDisconnected(ev *platform.DisconnectedEvent) {
	if c.farm != nil {
		c.farm.Stop()
	}
	c.state.Phase = PhaseDisconnected

	if c.loggedOff || ev.UserInitiated {
		slog.Info("disconnected from platform")
		return
	}

	slog.Warn("disconnected from platform, reconnecting in 5 seconds")
	if c.metrics != nil {
		c.metrics.Reconnects.Add(1)
	}
	c.loop.PostAfter(reconnectDelay, func() {
		if c.state.Phase != PhaseDisconnected {
			return
		}
		c.state.Phase = PhaseConnecting
		c.client.Connect()
	})
}

// HandleMachineAuth merges a pushed device-authorization chunk into the
// sentry file and acknowledges with the fresh full-file hash. The write and
// the rehash happen under one file handle; the acknowledgement is only sent
// afterwards, so the platform never sees a hash that does not match the
// stored bytes.
func (c *Controller) HandleMachineAuth(ev *platform.MachineAuthEvent) {
	slog.Info("updating device authorization", "file", ev.FileName, "offset", ev.Offset)

	data := ev.Data
	if ev.BytesToWrite < len(data) {
		data = data[:ev.BytesToWrite]
	}

	size, hash, err := c.sentries.Apply(c.bot.AccountName, ev.Offset, data)
	if err != nil {
		slog.Error("device authorization update failed", "err", err)
	} else {
		c.sentryHash = hash
	}

	c.client.SendMachineAuthResponse(platform.MachineAuthAck{
		Offset:          ev.Offset,
		BytesWritten:    len(data),
		FileSize:        size,
		FileName:        ev.FileName,
		JobID:           ev.JobID,
		OneTimePassword: ev.OneTimePassword,
		Hash:            hash,
		OK:              err == nil,
	})

	if err == nil {
		slog.Info("device authorization updated", "size", size)
	}
}
