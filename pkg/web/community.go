package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xetas/tradebot/pkg/model"
)

// JoinGroupIfNotJoinedAlready checks the bot's membership in a group and
// joins it when missing. A zero group ID is a no-op.
func (s *Session) JoinGroupIfNotJoinedAlready(groupID model.GroupID) error {
	if groupID == 0 {
		return nil
	}

	gid := strconv.FormatUint(uint64(groupID), 10)
	resp, err := s.client.Get(s.base + "/groups/" + gid + "/membership")
	if err != nil {
		return fmt.Errorf("web: group membership: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Member bool `json:"member"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("web: decode membership: %w", err)
	}
	if body.Member {
		return nil
	}

	join, err := s.client.PostForm(s.base+"/groups/"+gid+"/join", url.Values{})
	if err != nil {
		return fmt.Errorf("web: join group: %w", err)
	}
	join.Body.Close()
	if join.StatusCode != http.StatusOK {
		return fmt.Errorf("web: join group: status %d", join.StatusCode)
	}
	slog.Info("joined group", "group", gid)
	return nil
}

// InviteToGroup invites another account to a group. Best effort: the
// platform silently drops invites the target cannot receive.
func (s *Session) InviteToGroup(account model.AccountID, groupID model.GroupID) error {
	if groupID == 0 {
		return nil
	}
	form := url.Values{
		"invitee": {strconv.FormatUint(uint64(account), 10)},
		"group":   {strconv.FormatUint(uint64(groupID), 10)},
	}
	resp, err := s.client.PostForm(s.base+"/groups/invite", form)
	if err != nil {
		return fmt.Errorf("web: group invite: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("web: group invite: status %d", resp.StatusCode)
	}
	return nil
}

// ExploreDiscoveryQueues generates and fully explores the store discovery
// queue, which grants sale-event rewards. Returns a user-facing summary.
func (s *Session) ExploreDiscoveryQueues() (string, error) {
	resp, err := s.client.PostForm(s.base+"/explore/generatenewdiscoveryqueue", url.Values{"queuetype": {"0"}})
	if err != nil {
		return "", fmt.Errorf("web: generate discovery queue: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Queue []uint32 `json:"queue"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("web: decode discovery queue: %w", err)
	}

	explored := 0
	for _, appID := range body.Queue {
		form := url.Values{"appid_to_clear_from_queue": {strconv.FormatUint(uint64(appID), 10)}}
		clear, err := s.client.PostForm(s.base+"/explore/next", form)
		if err != nil {
			slog.Warn("discovery queue item failed", "app", appID, "err", err)
			continue
		}
		clear.Body.Close()
		if clear.StatusCode == http.StatusOK {
			explored++
		}
	}

	return fmt.Sprintf("Explored %d of %d discovery queue items.", explored, len(body.Queue)), nil
}

// GamesWithDrops returns the app IDs that still have card drops remaining,
// used by the farming loop to decide what to "play".
func (s *Session) GamesWithDrops() ([]uint32, error) {
	resp, err := s.client.Get(s.base + "/badges/drops")
	if err != nil {
		return nil, fmt.Errorf("web: badge drops: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Apps []struct {
			AppID          uint32 `json:"appid"`
			DropsRemaining int    `json:"drops_remaining"`
		} `json:"apps"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("web: decode badge drops: %w", err)
	}

	var ids []uint32
	for _, app := range body.Apps {
		if app.DropsRemaining > 0 {
			ids = append(ids, app.AppID)
		}
	}
	return ids, nil
}
