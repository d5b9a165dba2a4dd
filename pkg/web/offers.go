package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/xetas/tradebot/pkg/model"
)

// Trade offer states as reported by the offers API.
const (
	OfferStateActive   = 2
	OfferStateAccepted = 3
	OfferStateDeclined = 7
)

// TradeItem is one asset inside a trade offer.
type TradeItem struct {
	AppID      uint32 `json:"appid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
	Amount     string `json:"amount"`
}

// TradeOffer is one offer as returned by the offers API.
type TradeOffer struct {
	ID             string          `json:"tradeofferid"`
	Partner        model.AccountID `json:"accountid_other"`
	State          int             `json:"trade_offer_state"`
	ItemsToGive    []TradeItem     `json:"items_to_give"`
	ItemsToReceive []TradeItem     `json:"items_to_receive"`
}

// ItemDescription describes an asset class referenced by offers.
// MarketFeeApp identifies the game a trading card belongs to, which is how
// same-set card trades are recognized.
type ItemDescription struct {
	ClassID      string `json:"classid"`
	InstanceID   string `json:"instanceid"`
	Type         string `json:"type"`
	MarketFeeApp uint32 `json:"market_fee_app"`
}

// OffersSnapshot is the decoded answer of a GetTradeOffers call.
type OffersSnapshot struct {
	Sent         []TradeOffer      `json:"trade_offers_sent"`
	Received     []TradeOffer      `json:"trade_offers_received"`
	Descriptions []ItemDescription `json:"descriptions"`
}

// EscrowDuration reports how long a trade would be held back.
type EscrowDuration struct {
	Success         bool `json:"success"`
	DaysOurEscrow   int  `json:"days_our_escrow"`
	DaysTheirEscrow int  `json:"days_their_escrow"`
}

// GetTradeOffers fetches current sent and received offers with their item
// descriptions. Requires a fetched API key.
func (s *Session) GetTradeOffers() (*OffersSnapshot, error) {
	q := url.Values{
		"key":                  {s.APIKey()},
		"get_received_offers":  {"1"},
		"get_sent_offers":      {"1"},
		"get_descriptions":     {"1"},
		"active_only":          {"1"},
		"language":             {"en_us"},
		"time_historical_cutoff": {"0"},
	}
	resp, err := s.client.Get(s.base + "/econ/tradeoffers?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("web: get trade offers: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web: get trade offers: status %d", resp.StatusCode)
	}

	var body struct {
		Response OffersSnapshot `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("web: decode trade offers: %w", err)
	}
	return &body.Response, nil
}

// GetEscrowDuration reports the escrow hold for an offer.
func (s *Session) GetEscrowDuration(offerID string) (*EscrowDuration, error) {
	resp, err := s.client.Get(s.base + "/tradeoffer/" + offerID + "/escrow")
	if err != nil {
		return nil, fmt.Errorf("web: escrow duration: %w", err)
	}
	defer resp.Body.Close()

	var body EscrowDuration
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("web: decode escrow duration: %w", err)
	}
	return &body, nil
}

// AcceptTradeOffer accepts an offer.
func (s *Session) AcceptTradeOffer(offerID string) error {
	return s.postOfferAction(offerID, "accept")
}

// DeclineTradeOffer declines an offer.
func (s *Session) DeclineTradeOffer(offerID string) error {
	return s.postOfferAction(offerID, "decline")
}

func (s *Session) postOfferAction(offerID, action string) error {
	resp, err := s.client.PostForm(s.base+"/tradeoffer/"+offerID+"/"+action, url.Values{})
	if err != nil {
		return fmt.Errorf("web: %s offer %s: %w", action, offerID, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("web: %s offer %s: status %d", action, offerID, resp.StatusCode)
	}
	return nil
}
