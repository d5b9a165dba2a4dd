// Package web drives the platform's HTTP surface: web-session
// authentication, API-key management, trade offers, discovery queues, and
// reference time.
//
// All calls share one cookie jar, so a successful AuthenticateUser leaves
// the session cookies in place for every later request. The base URL is
// injectable for tests.
package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/xetas/tradebot/pkg/model"
)

// Session is an authenticated handle on the platform's web surface.
type Session struct {
	base   string
	client *http.Client

	mu     sync.Mutex
	selfID model.AccountID
	nonce  string // last one-time nonce, re-presented on refresh
	apiKey string
}

// NewSession returns a Session rooted at baseURL.
func NewSession(baseURL string) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("web: cookie jar: %w", err)
	}
	return &Session{
		base:   baseURL,
		client: &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}, nil
}

// AuthenticateUser trades a logon nonce for web-session cookies. Returns
// false on any failure; the caller schedules RefreshSessionIfNeeded retries.
func (s *Session) AuthenticateUser(selfID model.AccountID, nonce string) bool {
	s.mu.Lock()
	s.selfID = selfID
	s.nonce = nonce
	s.mu.Unlock()

	return s.postAuth(selfID, nonce)
}

// RefreshSessionIfNeeded checks the current session and re-authenticates
// with the stored nonce when the platform no longer accepts it.
func (s *Session) RefreshSessionIfNeeded() bool {
	resp, err := s.client.Get(s.base + "/auth/session/check")
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return true
		}
	}

	s.mu.Lock()
	selfID, nonce := s.selfID, s.nonce
	s.mu.Unlock()
	return s.postAuth(selfID, nonce)
}

func (s *Session) postAuth(selfID model.AccountID, nonce string) bool {
	form := url.Values{
		"account": {strconv.FormatUint(uint64(selfID), 10)},
		"nonce":   {nonce},
	}
	resp, err := s.client.PostForm(s.base+"/auth/session", form)
	if err != nil {
		slog.Warn("web auth request failed", "err", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("web auth rejected", "status", resp.StatusCode)
		return false
	}
	return true
}

// RequestAPIKey fetches the account's web API key, registering one when the
// account has none yet. The key authorizes trade-offer calls.
func (s *Session) RequestAPIKey() error {
	key, err := s.fetchAPIKey()
	if err != nil {
		return err
	}
	if key == "" {
		form := url.Values{"domain": {"localhost"}, "agree_to_terms": {"1"}}
		resp, err := s.client.PostForm(s.base+"/dev/registerkey", form)
		if err != nil {
			return fmt.Errorf("web: register api key: %w", err)
		}
		resp.Body.Close()
		if key, err = s.fetchAPIKey(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()
	return nil
}

func (s *Session) fetchAPIKey() (string, error) {
	resp, err := s.client.Get(s.base + "/dev/apikey")
	if err != nil {
		return "", fmt.Errorf("web: fetch api key: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("web: fetch api key: not signed in")
	}

	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("web: decode api key: %w", err)
	}
	return body.Key, nil
}

// APIKey returns the fetched web API key, empty before RequestAPIKey.
func (s *Session) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey
}

// QueryTime asks the platform for its reference time, used to align the
// second-factor clock.
func (s *Session) QueryTime() (time.Time, error) {
	resp, err := s.client.Post(s.base+"/twofactor/querytime", "application/x-www-form-urlencoded", nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("web: query time: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		ServerTime int64 `json:"server_time"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("web: decode time: %w", err)
	}
	return time.Unix(body.ServerTime, 0), nil
}
