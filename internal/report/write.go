package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"agora/internal/client"
	"agora/internal/common"
	"agora/internal/instrument"
)

// WriteClientReport writes output_client_report.csv: one row per (client,
// instrument) touched, columns ClientID, InstrumentID, NetPosition.
func WriteClientReport(w io.Writer, clients *client.Registry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"ClientID", "InstrumentID", "NetPosition"}); err != nil {
		return err
	}

	for _, c := range clients.All() {
		for _, instrumentID := range c.InstrumentIDs() {
			row := []string{
				c.ID,
				instrumentID,
				strconv.FormatInt(c.NetPosition(instrumentID), 10),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	return cw.Error()
}

// WriteInstrumentReport writes output_instrument_report.csv: one row per
// instrument, columns Instrument ID, OpenPrice, ClosePrice, TotalVolume,
// VWAP, DayHigh, DayLow.
func WriteInstrumentReport(w io.Writer, instruments *instrument.Registry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"Instrument ID", "OpenPrice", "ClosePrice", "TotalVolume", "VWAP", "DayHigh", "DayLow"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, inst := range instruments.All() {
		stats := inst.Snapshot()
		row := []string{
			inst.ID,
			stats.OpenPrice.String(),
			stats.ClosePrice.String(),
			strconv.FormatInt(stats.TotalVolume, 10),
			stats.VWAP.String(),
			stats.DayHigh.String(),
			stats.DayLow.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteExchangeReport writes output_exchange_report.csv: one row per
// rejection, columns OrderID, RejectionReason.
func WriteExchangeReport(w io.Writer, rejections []common.Rejection) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"OrderID", "RejectionReason"}); err != nil {
		return err
	}

	for _, rej := range rejections {
		if err := cw.Write([]string{rej.OrderID, string(rej.Reason)}); err != nil {
			return err
		}
	}
	return cw.Error()
}
