// Package auction computes the single-price uncross used for the opening
// and closing prints (spec.md §4.5). It is a pure function over an
// unordered batch of orders for one instrument: it never touches the book
// or the position ledger, only reports a price.
package auction

import (
	"sort"

	"github.com/shopspring/decimal"

	"agora/internal/common"
)

// Result is the auction's verdict for one batch. Crossed is false when no
// price matches any volume at all (spec.md scenario 6).
type Result struct {
	Price   decimal.Decimal
	Crossed bool
}

// Uncross computes the uncross price for batch, a bag of orders all for
// one instrument, all pre-open or all post-close (never mixed — the caller
// is internal/session).
func Uncross(batch []common.Order) Result {
	var bids, offers []common.Order
	for _, o := range batch {
		if o.Side == common.Buy {
			bids = append(bids, o.Clone())
		} else {
			offers = append(offers, o.Clone())
		}
	}

	maxLimitOffer, haveOffer := extremeLimitPrice(offers, true)
	minLimitBid, haveBid := extremeLimitPrice(bids, false)

	primedBids := primeMarketOrders(bids, maxLimitOffer, haveOffer)
	primedOffers := primeMarketOrders(offers, minLimitBid, haveBid)

	if len(primedBids) == 0 || len(primedOffers) == 0 {
		return Result{Crossed: false}
	}

	candidates := distinctPrices(primedBids, primedOffers)

	var best int64
	var tied []decimal.Decimal
	for _, p := range candidates {
		matchable := cumulativeBid(primedBids, p)
		if co := cumulativeOffer(primedOffers, p); co < matchable {
			matchable = co
		}
		switch {
		case matchable > best:
			best = matchable
			tied = []decimal.Decimal{p}
		case matchable == best && matchable > 0:
			tied = append(tied, p)
		}
	}

	if best <= 0 {
		return Result{Crossed: false}
	}
	if len(tied) == 1 {
		return Result{Price: tied[0], Crossed: true}
	}

	return Result{Price: breakTie(primedBids, primedOffers), Crossed: true}
}

// extremeLimitPrice returns the highest (wantMax) or lowest limit price
// among orders, ignoring unpriced market orders.
func extremeLimitPrice(orders []common.Order, wantMax bool) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, o := range orders {
		if o.IsMarket {
			continue
		}
		if !found {
			best = o.Price
			found = true
			continue
		}
		if wantMax && o.Price.GreaterThan(best) {
			best = o.Price
		}
		if !wantMax && o.Price.LessThan(best) {
			best = o.Price
		}
	}
	return best, found
}

// primeMarketOrders reprices every market order in orders onto reprice
// (the opposite side's extreme limit price from the same batch). A market
// order whose side has no opposite limit to reprice against is dropped —
// spec.md §4.5 point 2: "market orders on that side cannot participate".
func primeMarketOrders(orders []common.Order, reprice decimal.Decimal, haveReprice bool) []common.Order {
	out := make([]common.Order, 0, len(orders))
	for _, o := range orders {
		if o.IsMarket {
			if !haveReprice {
				continue
			}
			o.Price = reprice
			o.IsMarket = false
		}
		out = append(out, o)
	}
	return out
}

func distinctPrices(bids, offers []common.Order) []decimal.Decimal {
	seen := make(map[string]decimal.Decimal)
	for _, o := range bids {
		seen[o.Price.String()] = o.Price
	}
	for _, o := range offers {
		seen[o.Price.String()] = o.Price
	}
	out := make([]decimal.Decimal, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

// cumulativeBid sums the quantity of every bid willing to pay at least p.
func cumulativeBid(bids []common.Order, p decimal.Decimal) int64 {
	var sum int64
	for _, o := range bids {
		if o.Price.GreaterThanOrEqual(p) {
			sum += o.Quantity
		}
	}
	return sum
}

// cumulativeOffer sums the quantity of every offer willing to sell at or
// below p.
func cumulativeOffer(offers []common.Order, p decimal.Decimal) int64 {
	var sum int64
	for _, o := range offers {
		if o.Price.LessThanOrEqual(p) {
			sum += o.Quantity
		}
	}
	return sum
}

type levelQty struct {
	price decimal.Decimal
	qty   int64
}

func ownQtyByPrice(orders []common.Order) []levelQty {
	byPrice := make(map[string]*levelQty)
	for _, o := range orders {
		key := o.Price.String()
		entry, ok := byPrice[key]
		if !ok {
			entry = &levelQty{price: o.Price}
			byPrice[key] = entry
		}
		entry.qty += o.Quantity
	}
	out := make([]levelQty, 0, len(byPrice))
	for _, e := range byPrice {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].price.LessThan(out[j].price) })
	return out
}

// breakTie implements the tie-break procedure spec.md §4.5 attributes to
// the original source: find the bid price level with the largest own
// (non-cumulative) quantity, then walk offer prices ascending, subtracting
// each level's own quantity from that demand, and return the first offer
// price at which demand is exhausted.
func breakTie(bids, offers []common.Order) decimal.Decimal {
	bidLevels := ownQtyByPrice(bids)
	var popular levelQty
	for _, lv := range bidLevels {
		if lv.qty > popular.qty {
			popular = lv
		}
	}

	offerLevels := ownQtyByPrice(offers)
	demand := popular.qty
	for _, lv := range offerLevels {
		demand -= lv.qty
		if demand <= 0 {
			return lv.price
		}
	}
	// Demand was never exhausted walking the whole ladder: the most popular
	// bid level's own quantity exceeds the total offered quantity. Fall back
	// to the last (highest) offer level rather than a zero value.
	if len(offerLevels) > 0 {
		return offerLevels[len(offerLevels)-1].price
	}
	return decimal.Zero
}
