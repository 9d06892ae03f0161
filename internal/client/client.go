// Package client is the client registry and per-(client, instrument) price
// ledger that the order book drives on sell intake and on every fill. It is
// the cousin of internal/instrument: construction-time identity, run-time
// mutable state owned by the book.
package client

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Client is a trading participant. Positions retains per-price granularity
// (SPEC_FULL's "average cost could be recovered" from spec.md §3) even
// though only the net sum is ever reported.
type Client struct {
	ID                string
	AllowedCurrencies map[string]struct{}
	PositionCheck     bool
	Rating            int

	mu        sync.Mutex
	positions map[string]map[string]*ledgerEntry // instrumentID -> price key -> entry
}

type ledgerEntry struct {
	price decimal.Decimal
	qty   int64
}

func New(id string, currencies []string, positionCheck bool, rating int) *Client {
	set := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		set[c] = struct{}{}
	}
	return &Client{
		ID:                id,
		AllowedCurrencies: set,
		PositionCheck:     positionCheck,
		Rating:            rating,
		positions:         make(map[string]map[string]*ledgerEntry),
	}
}

func (c *Client) AllowsCurrency(currency string) bool {
	_, ok := c.AllowedCurrencies[currency]
	return ok
}

// ApplyLedgerDelta adds delta (positive for a buy fill, negative for a
// sell-intake reservation) to the client's position in instrumentID at
// price. Its two callers are internal/book's reserveShort (sell intake)
// and recordFill (buy fill); a sell fill writes nothing.
func (c *Client) ApplyLedgerDelta(instrumentID string, price decimal.Decimal, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byPrice, ok := c.positions[instrumentID]
	if !ok {
		byPrice = make(map[string]*ledgerEntry)
		c.positions[instrumentID] = byPrice
	}

	key := price.String()
	entry, ok := byPrice[key]
	if !ok {
		entry = &ledgerEntry{price: price}
		byPrice[key] = entry
	}
	entry.qty += delta
}

// NetPosition returns the signed sum of every ledger entry for instrumentID.
func (c *Client) NetPosition(instrumentID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.netPositionLocked(instrumentID)
}

func (c *Client) netPositionLocked(instrumentID string) int64 {
	var net int64
	for _, entry := range c.positions[instrumentID] {
		net += entry.qty
	}
	return net
}

// InstrumentIDs returns every instrument the client has ever touched,
// sorted, for deterministic report rows.
func (c *Client) InstrumentIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.positions))
	for id := range c.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
