package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/client"
	"agora/internal/common"
	"agora/internal/instrument"
	"agora/internal/report"
)

func decimalMustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseClients(t *testing.T) {
	csvData := "ClientID,Currencies,PositionCheck,Rating\n" +
		"A,SGD,N,5\n" +
		"B,\"USD,JPY\",Y,8\n"

	clients, err := report.ParseClients(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, clients, 2)

	assert.Equal(t, "A", clients[0].ID)
	assert.True(t, clients[0].AllowsCurrency("SGD"))
	assert.False(t, clients[0].PositionCheck)
	assert.Equal(t, 5, clients[0].Rating)

	assert.True(t, clients[1].AllowsCurrency("USD"))
	assert.True(t, clients[1].AllowsCurrency("JPY"))
	assert.True(t, clients[1].PositionCheck)
}

func TestParseClients_MalformedRowIsFatal(t *testing.T) {
	csvData := "ClientID,Currencies,PositionCheck,Rating\nA,SGD,MAYBE,5\n"

	_, err := report.ParseClients(strings.NewReader(csvData))
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrMalformedInput)
}

func TestParseInstruments(t *testing.T) {
	csvData := "InstrumentID,Currency,LotSize\nSIA,SGD,100\n"

	instruments, err := report.ParseInstruments(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, instruments, 1)
	assert.Equal(t, "SIA", instruments[0].ID)
	assert.Equal(t, "SGD", instruments[0].Currency)
	assert.Equal(t, int64(100), instruments[0].LotSize)
}

func TestParseOrders_LimitAndMarket(t *testing.T) {
	csvData := "OrderID,Time,Client,Instrument,Side,Price,Quantity\n" +
		"o1,09:31:00,A,SIA,Buy,32.00,100\n" +
		"o2,09:32:00,B,SIA,Sell,Market,50\n"

	orders, err := report.ParseOrders(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.False(t, orders[0].IsMarket)
	assert.Equal(t, common.Buy, orders[0].Side)
	assert.True(t, orders[1].IsMarket)
	assert.Equal(t, common.Sell, orders[1].Side)
	assert.Equal(t, int64(50), orders[1].Quantity)
}

func TestWriteClientReport(t *testing.T) {
	clients := client.NewRegistry()
	a := client.New("A", []string{"SGD"}, false, 5)
	a.ApplyLedgerDelta("SIA", decimalMustParse("32.0"), 100)
	clients.Add(a)

	var buf bytes.Buffer
	require.NoError(t, report.WriteClientReport(&buf, clients))

	out := buf.String()
	assert.Contains(t, out, "ClientID,InstrumentID,NetPosition")
	assert.Contains(t, out, "A,SIA,100")
}

func TestWriteInstrumentReport(t *testing.T) {
	instruments := instrument.NewRegistry()
	inst := instrument.New("SIA", "SGD", 1)
	inst.RecordFill(decimalMustParse("32.0"), 100)
	inst.RecordFill(decimalMustParse("32.5"), 200)
	inst.Finalize()
	instruments.Add(inst)

	var buf bytes.Buffer
	require.NoError(t, report.WriteInstrumentReport(&buf, instruments))

	out := buf.String()
	assert.Contains(t, out, "Instrument ID,OpenPrice,ClosePrice,TotalVolume,VWAP,DayHigh,DayLow")
	assert.Contains(t, out, "32.3333")
}

func TestWriteExchangeReport(t *testing.T) {
	rejections := []common.Rejection{
		{OrderID: "o1", Reason: common.InvalidLotSize},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteExchangeReport(&buf, rejections))

	out := buf.String()
	assert.Contains(t, out, "OrderID,RejectionReason")
	assert.Contains(t, out, "o1,REJECTED - INVALID LOT SIZE")
}
