// Package book is the per-instrument limit order book: two sides, each a
// mapping from price level to a priority queue of resting orders, plus the
// continuous-matching routine. This is the hardest and largest component
// in the system (spec.md §2 puts it at ~45% of the core) — see
// SPEC_FULL.md §1 for the invariants it must uphold.
package book

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"agora/internal/client"
	"agora/internal/common"
	"agora/internal/instrument"
	"agora/internal/priority"
)

// PriceLevel is one price on one side of the book: the price itself, and
// every resting order sitting at it, in priority order. A level exists in
// the tree iff it holds at least one order with positive residual — empty
// levels are deleted immediately after the match loop drains them.
type PriceLevel struct {
	Price decimal.Decimal
	Queue *priority.Queue
}

// OrderBook is the matching engine for one instrument. It owns the
// instrument's running stats (via the instrument.Instrument it wraps) and
// drives every position-ledger write the instrument causes. A book is only
// ever touched from the single goroutine that owns it (see
// internal/workerpool and internal/sim) — matching, the crossing test and
// every mutation below execute to completion without yielding, per
// spec.md §5.
type OrderBook struct {
	Instrument *instrument.Instrument
	Clients    *client.Registry

	// Bids sorts price levels highest-first; Offers sorts lowest-first.
	// Both are generalized from the teacher's engine.OrderBook, which used
	// the same *btree.BTreeG[*PriceLevel] shape for a single asset class.
	Bids   *btree.BTreeG[*PriceLevel]
	Offers *btree.BTreeG[*PriceLevel]

	// pendingMarketBids/Offers hold market orders parked because the
	// opposite side had no touch to reprice against at intake — see
	// SPEC_FULL.md §7's open-question decision.
	pendingMarketBids   *priority.Queue
	pendingMarketOffers *priority.Queue

	trades []common.Trade
	log    zerolog.Logger
}

func New(inst *instrument.Instrument, clients *client.Registry, log zerolog.Logger) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price) // sorted greatest first
	})
	offers := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price) // sorted least first
	})
	return &OrderBook{
		Instrument:          inst,
		Clients:             clients,
		Bids:                bids,
		Offers:              offers,
		pendingMarketBids:   priority.NewQueue(),
		pendingMarketOffers: priority.NewQueue(),
		log:                 log.With().Str("instrument", inst.ID).Logger(),
	}
}

// BestBid returns the highest resting buy price, if any.
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	level, ok := b.Bids.Min()
	if !ok {
		return decimal.Zero, false
	}
	return level.Price, true
}

// BestOffer returns the lowest resting sell price, if any.
func (b *OrderBook) BestOffer() (decimal.Decimal, bool) {
	level, ok := b.Offers.Min()
	if !ok {
		return decimal.Zero, false
	}
	return level.Price, true
}

// Trades returns every trade this book has produced, in the order the
// matching loop emitted them.
func (b *OrderBook) Trades() []common.Trade {
	return b.trades
}

// Submit places order, which must have already passed validation. It
// reprices a market order against the opposite touch, applies the seller's
// short reservation, runs the crossing test, and either matches or rests
// the order. Matching, once started, runs to completion: this method never
// yields mid-loop.
func (b *OrderBook) Submit(order *common.Order) {
	if order.Type == common.MarketOrder && order.IsMarket {
		if !b.reprice(order) {
			order.Status = common.StatusPendingMarket
			if order.Side == common.Buy {
				b.pendingMarketBids.Push(order)
			} else {
				b.pendingMarketOffers.Push(order)
			}
			return
		}
	}

	if order.Side == common.Sell {
		b.reserveShort(order)
	}

	if b.crosses(order) {
		b.match(order)
	} else {
		b.rest(order)
	}
}

// reprice rewrites a market order's price onto the current opposite touch.
// Returns false if the opposite side is empty.
func (b *OrderBook) reprice(order *common.Order) bool {
	if order.Side == common.Buy {
		price, ok := b.BestOffer()
		if !ok {
			return false
		}
		order.Price = price
	} else {
		price, ok := b.BestBid()
		if !ok {
			return false
		}
		order.Price = price
	}
	order.IsMarket = false
	return true
}

// reserveShort applies the up-front short-sell position reservation
// (spec.md §4.2, §4.3): the moment a sell passes validation, its full
// quantity is debited at its price, whether or not it ends up crossing.
// A market sell parked for lack of a bid is debited only when it is woken
// and repriced, since Submit parks it before reaching this call.
func (b *OrderBook) reserveShort(order *common.Order) {
	seller, ok := b.Clients.Get(order.ClientID)
	if !ok {
		return
	}
	seller.ApplyLedgerDelta(order.InstrumentID, order.Price, -order.Quantity)
}

func (b *OrderBook) crosses(order *common.Order) bool {
	if order.Side == common.Buy {
		best, ok := b.BestOffer()
		return ok && order.Price.GreaterThanOrEqual(best)
	}
	best, ok := b.BestBid()
	return ok && order.Price.LessThanOrEqual(best)
}

// match drains the opposite side's price levels, best price first, while
// the incoming order still crosses and still has residual. See spec.md
// §4.2's matching loop.
func (b *OrderBook) match(order *common.Order) {
	opp := b.Offers
	if order.Side == common.Sell {
		opp = b.Bids
	}

	for order.Remaining > 0 {
		level, ok := opp.Min()
		if !ok || b.levelOutOfReach(order, level.Price) {
			break
		}

		b.drainLevel(order, level)

		if level.Queue.Len() == 0 {
			opp.Delete(level)
		}
	}

	if order.Remaining > 0 {
		b.rest(order)
	} else {
		order.Status = common.StatusFilled
	}
}

func (b *OrderBook) levelOutOfReach(order *common.Order, levelPrice decimal.Decimal) bool {
	if order.Side == common.Buy {
		return order.Price.LessThan(levelPrice)
	}
	return order.Price.GreaterThan(levelPrice)
}

// drainLevel pulls resting orders off level in priority order until the
// incoming order is filled or the level itself is exhausted.
func (b *OrderBook) drainLevel(order *common.Order, level *PriceLevel) {
	for order.Remaining > 0 {
		resting, ok := level.Queue.Peek()
		if !ok {
			return
		}

		tradeSize := order.Remaining
		if resting.Remaining < tradeSize {
			tradeSize = resting.Remaining
		}
		if tradeSize <= 0 {
			return
		}

		order.Remaining -= tradeSize
		resting.Remaining -= tradeSize

		b.recordFill(order, resting, level.Price, tradeSize)

		if resting.Remaining == 0 {
			level.Queue.Pop()
			resting.Status = common.StatusFilled
		} else {
			resting.Status = common.StatusPartiallyFilled
			// order.Remaining must be 0 here, since tradeSize was the min —
			// the outer loop condition ends the drain.
		}
	}
}

// recordFill emits a trade at the resting order's price (spec.md's
// "passive price discipline"), updates the instrument's running stats, and
// credits the buyer's ledger. The seller's ledger was already debited at
// intake by reserveShort; no further write happens here.
func (b *OrderBook) recordFill(incoming, resting *common.Order, price decimal.Decimal, size int64) {
	buyOrder, sellOrder := incoming, resting
	if incoming.Side == common.Sell {
		buyOrder, sellOrder = resting, incoming
	}

	trade := common.Trade{
		ID:             uuid.New().String(),
		Time:           time.Now(),
		BuyerClientID:  buyOrder.ClientID,
		SellerClientID: sellOrder.ClientID,
		InstrumentID:   b.Instrument.ID,
		Price:          price,
		Volume:         size,
	}
	b.trades = append(b.trades, trade)

	b.Instrument.RecordFill(price, size)

	if buyer, ok := b.Clients.Get(buyOrder.ClientID); ok {
		buyer.ApplyLedgerDelta(b.Instrument.ID, price, size)
	}

	b.log.Info().
		Str("buyer", trade.BuyerClientID).
		Str("seller", trade.SellerClientID).
		Str("price", trade.Price.String()).
		Int64("volume", trade.Volume).
		Msg("trade")
}

// rest appends order to its own side's heap at its price, creating the
// price level if this is the first order there. If this side held no
// price levels before this order, any market orders parked waiting for a
// touch on this side are woken and resubmitted.
func (b *OrderBook) rest(order *common.Order) {
	levels := b.Bids
	if order.Side == common.Sell {
		levels = b.Offers
	}

	wasEmpty := levels.Len() == 0

	level, ok := levels.GetMut(&PriceLevel{Price: order.Price})
	if !ok {
		level = &PriceLevel{Price: order.Price, Queue: priority.NewQueue()}
		levels.Set(level)
	}
	level.Queue.Push(order)

	if order.Remaining == order.Quantity {
		order.Status = common.StatusResting
	} else {
		order.Status = common.StatusPartiallyFilled
	}

	if wasEmpty {
		if order.Side == common.Sell {
			b.wakePending(&b.pendingMarketBids)
		} else {
			b.wakePending(&b.pendingMarketOffers)
		}
	}
}

// wakePending resubmits every order parked in *pending now that a touch has
// appeared on the side it was waiting for.
func (b *OrderBook) wakePending(pending **priority.Queue) {
	queue := *pending
	*pending = priority.NewQueue()

	for {
		order, ok := queue.Pop()
		if !ok {
			return
		}
		order.Status = common.StatusAccepted
		b.Submit(order)
	}
}

// LevelSnapshot is one price level's total resting size, used by Snapshot.
type LevelSnapshot struct {
	Price decimal.Decimal
	Size  int64
}

// Snapshot is a structured point-in-time dump of the book, generalizing
// the original Python source's show_book() (see SPEC_FULL.md §5).
type Snapshot struct {
	Bids   []LevelSnapshot
	Offers []LevelSnapshot
}

func (b *OrderBook) Snapshot() Snapshot {
	snap := Snapshot{}
	for _, level := range b.Bids.Items() {
		snap.Bids = append(snap.Bids, levelSnapshot(level))
	}
	for _, level := range b.Offers.Items() {
		snap.Offers = append(snap.Offers, levelSnapshot(level))
	}
	return snap
}

func levelSnapshot(level *PriceLevel) LevelSnapshot {
	var size int64
	for _, order := range level.Queue.Orders() {
		size += order.Remaining
	}
	return LevelSnapshot{Price: level.Price, Size: size}
}
