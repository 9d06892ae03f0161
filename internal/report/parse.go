// Package report is the CSV boundary: parsing the three input files into
// registries and orders, and writing the three output reports. spec.md §1
// treats CSV parsing and serialization as an external collaborator
// specified only at its interface (§6); this package is that interface,
// built on the standard library's encoding/csv (see DESIGN.md — no
// third-party CSV library appears anywhere in the retrieved corpus).
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"agora/internal/client"
	"agora/internal/common"
	"agora/internal/instrument"
)

func readRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file, expected a header row", ErrMalformedInput)
	}
	return records[1:], nil
}

// ParseClients reads input_clients.csv: ClientID, Currencies, PositionCheck,
// Rating.
func ParseClients(r io.Reader) ([]*client.Client, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	out := make([]*client.Client, 0, len(rows))
	for _, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("%w: client row has %d columns, want 4", ErrMalformedInput, len(row))
		}
		id := strings.TrimSpace(row[0])

		positionCheck, err := parseYN(row[2])
		if err != nil {
			return nil, fmt.Errorf("%w: client %s PositionCheck: %v", ErrMalformedInput, id, err)
		}

		rating, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("%w: client %s Rating: %v", ErrMalformedInput, id, err)
		}

		out = append(out, client.New(id, splitCurrencies(row[1]), positionCheck, rating))
	}
	return out, nil
}

func splitCurrencies(field string) []string {
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseYN(field string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(field)) {
	case "Y":
		return true, nil
	case "N":
		return false, nil
	default:
		return false, fmt.Errorf("expected Y or N, got %q", field)
	}
}

// ParseInstruments reads input_instruments.csv: InstrumentID, Currency,
// LotSize.
func ParseInstruments(r io.Reader) ([]*instrument.Instrument, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	out := make([]*instrument.Instrument, 0, len(rows))
	for _, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("%w: instrument row has %d columns, want 3", ErrMalformedInput, len(row))
		}
		id := strings.TrimSpace(row[0])

		lotSize, err := strconv.ParseInt(strings.TrimSpace(row[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: instrument %s LotSize: %v", ErrMalformedInput, id, err)
		}

		out = append(out, instrument.New(id, strings.TrimSpace(row[1]), lotSize))
	}
	return out, nil
}

const marketPriceLiteral = "market"

// ParseOrders reads input_orders.csv: OrderID, Time, Client, Instrument,
// Side, Price, Quantity. Price is either a decimal literal or the literal
// string "Market". The returned orders carry Rating 0 and an empty
// snapshot — internal/sim fills Rating in from the referenced client at
// submission time, per spec.md §3's "rating (snapshot of client.rating at
// submission)".
func ParseOrders(r io.Reader) ([]common.Order, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	out := make([]common.Order, 0, len(rows))
	for _, row := range rows {
		if len(row) != 7 {
			return nil, fmt.Errorf("%w: order row has %d columns, want 7", ErrMalformedInput, len(row))
		}
		id := strings.TrimSpace(row[0])

		t, err := time.Parse("15:04:05", strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: order %s Time: %v", ErrMalformedInput, id, err)
		}

		side, err := parseSide(row[4])
		if err != nil {
			return nil, fmt.Errorf("%w: order %s Side: %v", ErrMalformedInput, id, err)
		}

		quantity, err := strconv.ParseInt(strings.TrimSpace(row[6]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: order %s Quantity: %v", ErrMalformedInput, id, err)
		}

		order := common.Order{
			ID:           id,
			Time:         t,
			ClientID:     strings.TrimSpace(row[2]),
			InstrumentID: strings.TrimSpace(row[3]),
			Side:         side,
			Quantity:     quantity,
			Remaining:    quantity,
			Status:       common.StatusAccepted,
		}

		priceField := strings.TrimSpace(row[5])
		if strings.ToLower(priceField) == marketPriceLiteral {
			order.Type = common.MarketOrder
			order.IsMarket = true
		} else {
			price, err := decimal.NewFromString(priceField)
			if err != nil {
				return nil, fmt.Errorf("%w: order %s Price: %v", ErrMalformedInput, id, err)
			}
			order.Type = common.LimitOrder
			order.Price = price
		}

		out = append(out, order)
	}
	return out, nil
}

func parseSide(field string) (common.Side, error) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "buy":
		return common.Buy, nil
	case "sell":
		return common.Sell, nil
	default:
		return 0, fmt.Errorf("expected Buy or Sell, got %q", field)
	}
}
