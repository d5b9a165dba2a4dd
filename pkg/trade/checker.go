// Package trade decides what to do with incoming trade offers.
//
// The rules come from the bot configuration: donations, escrowed trades,
// 1:1 same-set card trades, and 2-for-1 card trades in the bot's favour can
// each be toggled. Offers from configured admins are always accepted.
package trade

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xetas/tradebot/pkg/config"
	"github.com/xetas/tradebot/pkg/model"
	"github.com/xetas/tradebot/pkg/web"
)

// OffersAPI is the slice of the web surface the checker needs.
type OffersAPI interface {
	GetTradeOffers() (*web.OffersSnapshot, error)
	GetEscrowDuration(offerID string) (*web.EscrowDuration, error)
	AcceptTradeOffer(offerID string) error
	DeclineTradeOffer(offerID string) error
}

// Recorder persists trade decisions.
type Recorder interface {
	RecordTradeDecision(offerID, action, reason string) error
}

// Checker evaluates and resolves incoming trade offers.
type Checker struct {
	offers   OffersAPI
	recorder Recorder
	bot      *config.Bot
}

// NewChecker returns a Checker for one bot account.
func NewChecker(offers OffersAPI, recorder Recorder, bot *config.Bot) *Checker {
	return &Checker{offers: offers, recorder: recorder, bot: bot}
}

// Summary reports what one CheckOffers pass did.
type Summary struct {
	Accepted int
	Declined int
	Skipped  int
}

// CheckOffers fetches active incoming offers and accepts or declines each
// one according to the configured rules. Offers the bot sent itself are
// ignored. selfID guards against the bot evaluating its own offers when the
// offers API reports them inconsistently.
func (c *Checker) CheckOffers(selfID model.AccountID) (Summary, error) {
	var sum Summary

	snapshot, err := c.offers.GetTradeOffers()
	if err != nil {
		return sum, err
	}
	descs := indexDescriptions(snapshot.Descriptions)

	for _, offer := range snapshot.Received {
		if offer.State != web.OfferStateActive || offer.Partner == selfID {
			continue
		}

		action, reason := c.decide(&offer, descs)
		switch action {
		case "accepted":
			if err := c.offers.AcceptTradeOffer(offer.ID); err != nil {
				slog.Warn("accept trade offer failed", "offer", offer.ID, "err", err)
				sum.Skipped++
				continue
			}
			sum.Accepted++
		case "declined":
			if err := c.offers.DeclineTradeOffer(offer.ID); err != nil {
				slog.Warn("decline trade offer failed", "offer", offer.ID, "err", err)
				sum.Skipped++
				continue
			}
			sum.Declined++
		default:
			sum.Skipped++
		}

		slog.Info("trade offer resolved", "offer", offer.ID, "action", action, "reason", reason)
		if c.recorder != nil {
			if err := c.recorder.RecordTradeDecision(offer.ID, action, reason); err != nil {
				slog.Warn("record trade decision failed", "offer", offer.ID, "err", err)
			}
		}
	}
	return sum, nil
}

// decide returns ("accepted"|"declined"|"skipped", reason).
func (c *Checker) decide(offer *web.TradeOffer, descs map[string]web.ItemDescription) (string, string) {
	if c.bot.IsAdmin(offer.Partner) {
		return "accepted", "offer from admin"
	}

	if len(offer.ItemsToGive) == 0 {
		if c.bot.AcceptDonations {
			return "accepted", "donation"
		}
		return "declined", "donations disabled"
	}

	if !c.bot.AcceptEscrow {
		escrow, err := c.offers.GetEscrowDuration(offer.ID)
		if err != nil {
			return "skipped", fmt.Sprintf("escrow check failed: %v", err)
		}
		if escrow.DaysOurEscrow > 0 || escrow.DaysTheirEscrow > 0 {
			return "declined", "offer would be held in escrow"
		}
	}

	give, giveCards := cardSets(offer.ItemsToGive, descs)
	recv, recvCards := cardSets(offer.ItemsToReceive, descs)
	if !giveCards || !recvCards {
		return "declined", "contains non-card items"
	}

	if c.bot.Accept1on1Trades && len(offer.ItemsToGive) == len(offer.ItemsToReceive) && sameSets(give, recv) {
		return "accepted", "1:1 same-set card trade"
	}
	if c.bot.Accept1on2Trades && len(offer.ItemsToReceive) >= 2*len(offer.ItemsToGive) {
		return "accepted", "2:1 card trade in our favour"
	}
	return "declined", "does not match any accepted trade pattern"
}

func indexDescriptions(descs []web.ItemDescription) map[string]web.ItemDescription {
	m := make(map[string]web.ItemDescription, len(descs))
	for _, d := range descs {
		m[d.ClassID+"_"+d.InstanceID] = d
	}
	return m
}

// cardSets returns the card-set (market fee app) of every item and whether
// all items are trading cards.
func cardSets(items []web.TradeItem, descs map[string]web.ItemDescription) ([]uint32, bool) {
	sets := make([]uint32, 0, len(items))
	for _, it := range items {
		d, ok := descs[it.ClassID+"_"+it.InstanceID]
		if !ok || !strings.Contains(d.Type, "Trading Card") {
			return nil, false
		}
		sets = append(sets, d.MarketFeeApp)
	}
	return sets, true
}

// sameSets reports whether every given card belongs to the same set as some
// received card (multiset equality on set IDs).
func sameSets(give, recv []uint32) bool {
	if len(give) != len(recv) {
		return false
	}
	counts := make(map[uint32]int, len(recv))
	for _, s := range recv {
		counts[s]++
	}
	for _, s := range give {
		if counts[s] == 0 {
			return false
		}
		counts[s]--
	}
	return true
}
