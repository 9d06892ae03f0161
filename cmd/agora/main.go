// Command agora runs one exchange simulation session: it reads the three
// input CSVs from --data-dir, runs every order through validation, the
// book and the auction engine, and writes the three report CSVs to
// --out-dir. There are no required flags, per spec.md §6 — every flag has
// a working default and can also be set via an AGORA_* environment
// variable, generalizing the teacher's flag-based cmd/client into a single
// cobra+viper entry point (see SPEC_FULL.md §2).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agora/internal/client"
	"agora/internal/common"
	"agora/internal/instrument"
	"agora/internal/report"
	"agora/internal/sim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "agora",
		Short: "Run one single-venue exchange simulation session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("data-dir", ".", "directory containing input_clients.csv, input_instruments.csv, input_orders.csv")
	flags.String("out-dir", ".", "directory to write output_client_report.csv, output_instrument_report.csv, output_exchange_report.csv")
	flags.String("log-level", "info", "zerolog level: debug, info, warn, error")

	v.SetEnvPrefix("AGORA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	return cmd
}

func run(v *viper.Viper) error {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	dataDir := v.GetString("data-dir")
	outDir := v.GetString("out-dir")

	clients, instruments, orders, err := loadInputs(dataDir)
	if err != nil {
		return err
	}

	s := sim.New(instruments, clients, log)
	if err := s.Run(orders); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if err := writeReports(outDir, s); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	log.Info().
		Int("trades", len(s.Trades())).
		Int("rejections", len(s.Rejections())).
		Msg("session complete")
	return nil
}

func loadInputs(dataDir string) (*client.Registry, *instrument.Registry, []common.Order, error) {
	clientsFile, err := os.Open(filepath.Join(dataDir, "input_clients.csv"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open input_clients.csv: %w", err)
	}
	defer clientsFile.Close()

	parsedClients, err := report.ParseClients(clientsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	clients := client.NewRegistry()
	for _, c := range parsedClients {
		clients.Add(c)
	}

	instrumentsFile, err := os.Open(filepath.Join(dataDir, "input_instruments.csv"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open input_instruments.csv: %w", err)
	}
	defer instrumentsFile.Close()

	parsedInstruments, err := report.ParseInstruments(instrumentsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	instruments := instrument.NewRegistry()
	for _, inst := range parsedInstruments {
		instruments.Add(inst)
	}

	ordersFile, err := os.Open(filepath.Join(dataDir, "input_orders.csv"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open input_orders.csv: %w", err)
	}
	defer ordersFile.Close()

	orders, err := report.ParseOrders(ordersFile)
	if err != nil {
		return nil, nil, nil, err
	}

	return clients, instruments, orders, nil
}

func writeReports(outDir string, s *sim.Simulation) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	clientReport, err := os.Create(filepath.Join(outDir, "output_client_report.csv"))
	if err != nil {
		return err
	}
	defer clientReport.Close()
	if err := report.WriteClientReport(clientReport, s.Clients); err != nil {
		return err
	}

	instrumentReport, err := os.Create(filepath.Join(outDir, "output_instrument_report.csv"))
	if err != nil {
		return err
	}
	defer instrumentReport.Close()
	if err := report.WriteInstrumentReport(instrumentReport, s.Instruments); err != nil {
		return err
	}

	exchangeReport, err := os.Create(filepath.Join(outDir, "output_exchange_report.csv"))
	if err != nil {
		return err
	}
	defer exchangeReport.Close()
	return report.WriteExchangeReport(exchangeReport, s.Rejections())
}
