package sim_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/client"
	"agora/internal/common"
	"agora/internal/instrument"
	"agora/internal/sim"
)

func at(hhmmss string) time.Time {
	tm, err := time.Parse("15:04:05", hhmmss)
	if err != nil {
		panic(err)
	}
	return tm
}

func newSim(t *testing.T) *sim.Simulation {
	t.Helper()

	instruments := instrument.NewRegistry()
	instruments.Add(instrument.New("SIA", "SGD", 1))

	clients := client.NewRegistry()
	clients.Add(client.New("A", []string{"SGD"}, false, 5))
	clients.Add(client.New("B", []string{"SGD"}, false, 5))

	return sim.New(instruments, clients, zerolog.Nop())
}

func TestRun_ContinuousMatch(t *testing.T) {
	s := newSim(t)

	orders := []common.Order{
		{ID: "o1", Time: at("09:31:00"), ClientID: "A", InstrumentID: "SIA", Side: common.Buy, Type: common.LimitOrder, Price: decimal.RequireFromString("32.0"), Quantity: 100, Remaining: 100},
		{ID: "o2", Time: at("09:32:00"), ClientID: "B", InstrumentID: "SIA", Side: common.Sell, Type: common.LimitOrder, Price: decimal.RequireFromString("32.0"), Quantity: 100, Remaining: 100},
	}

	require.NoError(t, s.Run(orders))

	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "A", trades[0].BuyerClientID)
	assert.Equal(t, "B", trades[0].SellerClientID)
	assert.Empty(t, s.Rejections())
}

func TestRun_RejectsInvalidLotSize(t *testing.T) {
	instruments := instrument.NewRegistry()
	instruments.Add(instrument.New("SIA", "SGD", 100))
	clients := client.NewRegistry()
	clients.Add(client.New("A", []string{"SGD"}, false, 5))
	s := sim.New(instruments, clients, zerolog.Nop())

	orders := []common.Order{
		{ID: "o1", Time: at("09:31:00"), ClientID: "A", InstrumentID: "SIA", Side: common.Buy, Type: common.LimitOrder, Price: decimal.RequireFromString("32.0"), Quantity: 12, Remaining: 12},
	}

	require.NoError(t, s.Run(orders))

	rejections := s.Rejections()
	require.Len(t, rejections, 1)
	assert.Equal(t, common.InvalidLotSize, rejections[0].Reason)
	assert.Empty(t, s.Trades())
}

func TestRun_UnknownClientIsFatal(t *testing.T) {
	s := newSim(t)

	orders := []common.Order{
		{ID: "o1", Time: at("09:31:00"), ClientID: "ghost", InstrumentID: "SIA", Side: common.Buy, Type: common.LimitOrder, Price: decimal.RequireFromString("32.0"), Quantity: 100, Remaining: 100},
	}

	err := s.Run(orders)
	require.Error(t, err)
	assert.ErrorIs(t, err, sim.ErrUnknownClient)
}

func TestRun_PreOpenAuctionSetsOpenPrice(t *testing.T) {
	s := newSim(t)

	orders := []common.Order{
		{ID: "o1", Time: at("09:00:00"), ClientID: "A", InstrumentID: "SIA", Side: common.Buy, Type: common.LimitOrder, Price: decimal.RequireFromString("20.0"), Quantity: 300, Remaining: 300},
		{ID: "o2", Time: at("09:05:00"), ClientID: "B", InstrumentID: "SIA", Side: common.Sell, Type: common.LimitOrder, Price: decimal.RequireFromString("18.0"), Quantity: 200, Remaining: 200},
	}

	require.NoError(t, s.Run(orders))

	inst, ok := s.Instruments.Get("SIA")
	require.True(t, ok)
	stats := inst.Snapshot()
	assert.False(t, stats.OpenPrice.IsZero())
}

// A crossing pre-open auction must win OpenPrice over a later continuous
// trade at a different price, even though the continuous trade updates
// the instrument's stats first (Simulation.Run computes every auction only
// after all continuous matching has finished; this locks in that the
// precedence itself, not processing order, decides OpenPrice).
func TestRun_PreOpenAuctionOpenPriceBeatsLaterContinuousTrade(t *testing.T) {
	s := newSim(t)

	orders := []common.Order{
		{ID: "o1", Time: at("09:00:00"), ClientID: "A", InstrumentID: "SIA", Side: common.Buy, Type: common.LimitOrder, Price: decimal.RequireFromString("20.0"), Quantity: 300, Remaining: 300},
		{ID: "o2", Time: at("09:05:00"), ClientID: "B", InstrumentID: "SIA", Side: common.Sell, Type: common.LimitOrder, Price: decimal.RequireFromString("20.0"), Quantity: 300, Remaining: 300},
		{ID: "o3", Time: at("10:00:00"), ClientID: "A", InstrumentID: "SIA", Side: common.Buy, Type: common.LimitOrder, Price: decimal.RequireFromString("35.0"), Quantity: 50, Remaining: 50},
		{ID: "o4", Time: at("10:01:00"), ClientID: "B", InstrumentID: "SIA", Side: common.Sell, Type: common.LimitOrder, Price: decimal.RequireFromString("35.0"), Quantity: 50, Remaining: 50},
	}

	require.NoError(t, s.Run(orders))

	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.True(t, decimal.RequireFromString("35.0").Equal(trades[0].Price))

	inst, ok := s.Instruments.Get("SIA")
	require.True(t, ok)
	stats := inst.Snapshot()
	assert.True(t, decimal.RequireFromString("20.0").Equal(stats.OpenPrice))
	assert.True(t, decimal.RequireFromString("35.0").Equal(stats.ClosePrice))
}
