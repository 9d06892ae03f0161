package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a single fill produced by the matching loop. Price is always the
// resting (passive) order's price, never the aggressor's — see
// SPEC_FULL.md §1, "passive price discipline". ID is minted at trade time
// (github.com/google/uuid) purely for log correlation; it is not part of
// any report.
type Trade struct {
	ID             string
	Time           time.Time
	BuyerClientID  string
	SellerClientID string
	InstrumentID   string
	Price          decimal.Decimal
	Volume         int64
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"%s BUY %s SELL %s %d %s @ %s",
		t.Time.Format("15:04:05"), t.BuyerClientID, t.SellerClientID, t.Volume, t.InstrumentID, t.Price,
	)
}
