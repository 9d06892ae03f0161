// Package instrument is the immutable catalog of tradable symbols plus the
// mutable running statistics the book updates on every fill: open, close,
// high, low, cumulative volume and the VWAP numerator.
package instrument

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Instrument is created once at ingestion and never destroyed. Its
// identity fields (ID, Currency, LotSize) never change; its running stats
// are mutated only by the order book that owns it, and only on a fill —
// per SPEC_FULL.md §3's shared-resource policy, a single goroutine ever
// touches one instrument's stats, so the mutex here guards only the rare
// cross-goroutine read (the report writer, after the simulation has
// stopped all workers).
type Instrument struct {
	ID       string
	Currency string
	LotSize  int64

	mu sync.Mutex

	// openPrice/openSet are the resolved values Snapshot reports; they are
	// only ever written by resolveOpenLocked, never directly by RecordFill
	// or SetOpenFromAuction — see those methods' comments for why.
	openPrice  decimal.Decimal
	openSet    bool
	closePrice decimal.Decimal
	closeSet   bool

	// auctionOpenPrice/auctionOpenSet and firstContinuousPrice/
	// firstContinuousSet are recorded independently of each other and of
	// openPrice, so that whichever of the pre-open auction or the first
	// continuous fill happens to be processed first cannot pre-empt the
	// other. resolveOpenLocked applies spec.md §6's precedence (auction
	// wins if it crossed, else first continuous trade) once the run is
	// known to be complete.
	auctionOpenPrice decimal.Decimal
	auctionOpenSet   bool

	firstContinuousPrice decimal.Decimal
	firstContinuousSet   bool

	dayHigh    decimal.Decimal
	dayLow     decimal.Decimal
	highLowSet bool

	lastTradePrice decimal.Decimal
	lastTradeSet   bool

	totalVolume   int64
	vwapNumerator decimal.Decimal
}

func New(id, currency string, lotSize int64) *Instrument {
	return &Instrument{
		ID:            id,
		Currency:      currency,
		LotSize:       lotSize,
		vwapNumerator: decimal.Zero,
	}
}

// RecordFill updates the running statistics for one continuous-matching
// trade. It only records the first continuous fill's price as a
// *candidate* open (firstContinuousPrice); it never writes openPrice
// directly, because the pre-open auction for this instrument is resolved
// only later (internal/sim.Simulation runs every auction after all
// continuous matching has finished), so a first-writer-wins open would
// always favour the continuous trade. resolveOpenLocked decides which
// candidate wins once the run is complete.
func (i *Instrument) RecordFill(price decimal.Decimal, volume int64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.firstContinuousSet {
		i.firstContinuousPrice = price
		i.firstContinuousSet = true
	}
	if !i.highLowSet {
		i.dayHigh = price
		i.dayLow = price
		i.highLowSet = true
	} else {
		if price.GreaterThan(i.dayHigh) {
			i.dayHigh = price
		}
		if price.LessThan(i.dayLow) {
			i.dayLow = price
		}
	}
	i.totalVolume += volume
	i.vwapNumerator = i.vwapNumerator.Add(price.Mul(decimal.NewFromInt(volume)))

	i.lastTradePrice = price
	i.lastTradeSet = true
}

// SetOpenFromAuction records that the pre-open auction crossed at price.
// It always records the candidate, even if continuous fills have already
// arrived for this instrument — resolveOpenLocked, not write order,
// decides precedence.
func (i *Instrument) SetOpenFromAuction(price decimal.Decimal) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.auctionOpenPrice = price
	i.auctionOpenSet = true
}

// SetCloseFromAuction records the post-close auction's uncross price as the
// instrument's close, overriding any continuous-trade fallback.
func (i *Instrument) SetCloseFromAuction(price decimal.Decimal) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.closePrice = price
	i.closeSet = true
}

// Finalize is called once, after all orders for every instrument have
// been processed and every instrument's pre-open and post-close auctions
// have run, to resolve the open and close prices from their respective
// candidates. This is the single point where write order stops mattering:
// whichever of RecordFill or SetOpenFromAuction happened to run first no
// longer affects the result.
func (i *Instrument) Finalize() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.resolveOpenLocked()

	if !i.closeSet && i.lastTradeSet {
		i.closePrice = i.lastTradePrice
		i.closeSet = true
	}
}

// resolveOpenLocked applies spec.md §6's precedence: the pre-open
// auction's uncross price wins if the pre-open batch crossed, otherwise
// the first continuous trade price, otherwise open stays unset (zero).
func (i *Instrument) resolveOpenLocked() {
	switch {
	case i.auctionOpenSet:
		i.openPrice = i.auctionOpenPrice
		i.openSet = true
	case i.firstContinuousSet:
		i.openPrice = i.firstContinuousPrice
		i.openSet = true
	}
}

// Stats is a read-only snapshot used by the report writer.
type Stats struct {
	OpenPrice   decimal.Decimal
	ClosePrice  decimal.Decimal
	TotalVolume int64
	VWAP        decimal.Decimal
	DayHigh     decimal.Decimal
	DayLow      decimal.Decimal
}

// Snapshot returns the instrument's current stats. VWAP is rounded to four
// decimal places, per spec.md §6, or zero if nothing has traded.
func (i *Instrument) Snapshot() Stats {
	i.mu.Lock()
	defer i.mu.Unlock()

	vwap := decimal.Zero
	if i.totalVolume > 0 {
		vwap = i.vwapNumerator.DivRound(decimal.NewFromInt(i.totalVolume), 4)
	}

	return Stats{
		OpenPrice:   i.openPrice,
		ClosePrice:  i.closePrice,
		TotalVolume: i.totalVolume,
		VWAP:        vwap,
		DayHigh:     i.dayHigh,
		DayLow:      i.dayLow,
	}
}
