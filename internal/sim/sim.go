// Package sim is the orchestrator: it owns the instrument and client
// registries, lazily creates one order book per instrument, and drives
// every order from the input batch through validation, session routing,
// continuous matching or auction accumulation, and finally the opening and
// closing uncross. See SPEC_FULL.md §3 for how this generalizes the
// teacher's connection-per-worker server loop into an instrument-per-worker
// batch run.
package sim

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"agora/internal/auction"
	"agora/internal/book"
	"agora/internal/client"
	"agora/internal/common"
	"agora/internal/instrument"
	"agora/internal/session"
	"agora/internal/validate"
	"agora/internal/workerpool"
)

// ErrUnknownClient is the sentinel fatal error for an order referencing a
// ClientID absent from the client registry (spec.md §7).
var ErrUnknownClient = errors.New("unknown client")

// Simulation runs one batch of orders to completion.
type Simulation struct {
	Instruments *instrument.Registry
	Clients     *client.Registry

	log     zerolog.Logger
	session *session.Controller
	pool    *workerpool.Pool
	tomb    *tomb.Tomb

	booksMu sync.Mutex
	books   map[string]*book.OrderBook

	rejMu      sync.Mutex
	rejections []common.Rejection
}

func New(instruments *instrument.Registry, clients *client.Registry, log zerolog.Logger) *Simulation {
	t := new(tomb.Tomb)
	return &Simulation{
		Instruments: instruments,
		Clients:     clients,
		log:         log,
		session:     session.NewController(),
		pool:        workerpool.New(t, log),
		tomb:        t,
		books:       make(map[string]*book.OrderBook),
	}
}

// Run processes orders in input order, one per-instrument worker goroutine
// at a time per instrument, then computes every instrument's opening and
// closing auction price and finalizes its running statistics. Orders is
// assumed chronologically sorted by Time, per spec.md §5.
func (s *Simulation) Run(orders []common.Order) error {
	for seq, order := range orders {
		cl, ok := s.Clients.Get(order.ClientID)
		if !ok {
			return fmt.Errorf("%w: order %s references client %s", ErrUnknownClient, order.ID, order.ClientID)
		}
		order.Rating = cl.Rating

		seq := seq
		s.pool.Submit(order.InstrumentID, func() {
			s.process(order, cl, seq)
		})
	}

	s.pool.Stop()
	if err := s.pool.Wait(); err != nil {
		return err
	}

	s.runAuctions()
	s.finalizeInstruments()
	return nil
}

// process validates order, then either parks it in an auction batch or
// submits it to its instrument's continuous book. It runs on that
// instrument's single worker goroutine, so validation and book submission
// for one instrument are always strictly serialized. seq is order's
// position in the input file, carried through only so a rejection can
// record it (see reject).
func (s *Simulation) process(order common.Order, cl *client.Client, seq int) {
	result := validate.Order(order, cl, s.Instruments)
	if !result.Accepted {
		s.reject(order, seq, result.Reason)
		return
	}

	if phase := s.session.Route(order); phase != session.Continuous {
		return
	}

	b, ok := s.getOrCreateBook(order.InstrumentID)
	if !ok {
		// Unreachable: validate.Order already confirmed the instrument exists.
		return
	}
	ord := order
	b.Submit(&ord)
}

func (s *Simulation) getOrCreateBook(instrumentID string) (*book.OrderBook, bool) {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()

	if b, ok := s.books[instrumentID]; ok {
		return b, true
	}
	inst, ok := s.Instruments.Get(instrumentID)
	if !ok {
		return nil, false
	}
	b := book.New(inst, s.Clients, s.log)
	s.books[instrumentID] = b
	return b, true
}

func (s *Simulation) reject(order common.Order, seq int, reason common.RejectionReason) {
	s.rejMu.Lock()
	defer s.rejMu.Unlock()
	s.rejections = append(s.rejections, common.Rejection{
		OrderID: order.ID,
		Time:    order.Time,
		Reason:  reason,
		Seq:     seq,
	})
	s.log.Debug().Str("order_id", order.ID).Str("reason", string(reason)).Msg("order rejected")
}

// runAuctions computes the uncross price for every instrument's pre-open
// and post-close batch, once all continuous matching has drained.
func (s *Simulation) runAuctions() {
	for _, instrumentID := range s.session.Instruments() {
		inst, ok := s.Instruments.Get(instrumentID)
		if !ok {
			continue
		}

		if preOpen := s.session.PreOpenBatch(instrumentID); len(preOpen) > 0 {
			if result := auction.Uncross(preOpen); result.Crossed {
				inst.SetOpenFromAuction(result.Price)
			}
		}
		if postClose := s.session.PostCloseBatch(instrumentID); len(postClose) > 0 {
			if result := auction.Uncross(postClose); result.Crossed {
				inst.SetCloseFromAuction(result.Price)
			}
		}
	}
}

func (s *Simulation) finalizeInstruments() {
	for _, inst := range s.Instruments.All() {
		inst.Finalize()
	}
}

// Rejections returns every rejection recorded during Run, sorted by input
// arrival order (common.Rejection.Seq). Rejections are appended from
// whichever per-instrument worker goroutine happens to run first, so the
// underlying slice's order is not itself reproducible across runs — the
// sort is what makes output_exchange_report.csv bit-identical between two
// runs of the same input, per spec.md §8's report-idempotence property.
func (s *Simulation) Rejections() []common.Rejection {
	s.rejMu.Lock()
	out := append([]common.Rejection(nil), s.rejections...)
	s.rejMu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Trades returns every trade produced across every instrument's book,
// grouped by instrument (sorted) and in emission order within each.
func (s *Simulation) Trades() []common.Trade {
	s.booksMu.Lock()
	ids := make([]string, 0, len(s.books))
	for id := range s.books {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []common.Trade
	for _, id := range ids {
		out = append(out, s.books[id].Trades()...)
	}
	s.booksMu.Unlock()
	return out
}
