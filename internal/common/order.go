package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single client instruction to buy or sell a fixed quantity of
// one instrument. Time is date-agnostic (see internal/report for parsing);
// only its time-of-day component is meaningful for session routing and
// priority ordering.
//
// Remaining is the mutable residual quantity. The invariant
// 0 <= Remaining <= Quantity holds from intake until the order reaches a
// terminal Status.
type Order struct {
	ID           string
	Time         time.Time
	ClientID     string
	InstrumentID string
	Side         Side
	Type         OrderType
	IsMarket     bool // true until a market order is repriced onto a concrete Price
	Price        decimal.Decimal
	Quantity     int64
	Remaining    int64
	Rating       int // snapshot of client.Rating at submission
	Status       OrderStatus
}

// Clone returns an independent copy of the order. Order has no fields that
// alias mutable state — decimal.Decimal is treated as immutable by every
// operation in the decimal package, and every other field is a value type —
// so a plain struct copy is a deep copy. The auction engine uses this to
// reprice a market order onto a concrete price without mutating the
// caller's batch.
func (o Order) Clone() Order {
	return o
}

func (o Order) String() string {
	price := "MARKET"
	if !o.IsMarket {
		price = o.Price.String()
	}
	return fmt.Sprintf(
		"%s %s %s %d/%d @ %s (rating %d, %s)",
		o.ID, o.InstrumentID, o.Side, o.Remaining, o.Quantity, price, o.Rating, o.Status,
	)
}

// Rejection is an append-only record of a single order's validation
// failure. It never halts the run; it is simply collected for the exchange
// report. Seq is the order's position in the input file, used to restore
// arrival order when rejections are collected from several concurrent
// per-instrument workers (see internal/sim.Simulation.Rejections).
type Rejection struct {
	OrderID string
	Time    time.Time
	Reason  RejectionReason
	Seq     int
}
