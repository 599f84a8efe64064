package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/itchyny/gojq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/solhist/solhist/service/config"
	"github.com/solhist/solhist/service/db"
	"github.com/solhist/solhist/service/export"
	"github.com/solhist/solhist/service/history"
	"github.com/solhist/solhist/service/metadata"
	"github.com/solhist/solhist/service/metrics"
	natssvc "github.com/solhist/solhist/service/nats"
	solsvc "github.com/solhist/solhist/service/solana"
	"github.com/urfave/cli/v2"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a wallet's transaction history",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output CSV file path",
				EnvVars: []string{"OUTPUT_PATH"},
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of signatures to process (0 means all)",
				EnvVars: []string{"OPERATION_LIMIT"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Print records as JSON to stdout instead of writing CSV",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Aliases: []string{"jq"},
				Usage:   "jq filter that must evaluate to true for a record to be kept (repeatable, all must match)",
			},
		},
		Action: runExport,
	}
}

func runExport(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("wallet address is required")
	}

	// Validate the address before any network activity.
	wallet, err := solana.PublicKeyFromBase58(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("invalid wallet address %q: %w", c.Args().Get(0), err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, c)

	filters, err := compileJQFilters(c.StringSlice("must-jq"))
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting export",
		"wallet", wallet.String(),
		"rpc_url", cfg.SolanaRPCURL,
		"limit", cfg.OperationLimit,
	)

	ctx := c.Context

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		m = metrics.NewMetrics(registry)
		go serveMetrics(cfg.MetricsAddr, registry, logger)
	}

	rpcClient := solsvc.NewRPCClient(cfg.SolanaRPCURL)
	ledger := solsvc.NewClient(rpcClient, m, logger)
	resolver := metadata.NewResolver(rpcClient, m, logger)

	builder := history.NewRecordBuilder(resolver, logger)
	orch := history.NewOrchestrator(ledger, history.NewExtractor(logger), builder, m, logger)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		store := db.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		orch.AddSink(store)
		logger.Info("database sink enabled")
	}

	if cfg.NATSURL != "" {
		publisher, err := natssvc.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize NATS publisher: %w", err)
		}
		defer publisher.Close()
		orch.AddSink(natssvc.NewSink(publisher))
		logger.Info("NATS sink enabled")
	}

	records, err := orch.Run(ctx, wallet, cfg.OperationLimit)
	if err != nil {
		return err
	}

	records, err = filterRecords(records, filters)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	exporter := export.NewCSVExporter(logger)
	return exporter.Save(records, cfg.OutputPath)
}

// applyFlagOverrides lets command-line flags take precedence over environment
// configuration.
func applyFlagOverrides(cfg *config.Config, c *cli.Context) {
	if v := c.String("rpc-url"); v != "" {
		cfg.SolanaRPCURL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("output"); v != "" {
		cfg.OutputPath = v
	}
	if c.IsSet("limit") {
		cfg.OperationLimit = c.Int("limit")
	}
	if v := c.String("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := c.String("nats-url"); v != "" {
		cfg.NATSURL = v
	}
	if v := c.String("metrics-addr"); v != "" {
		cfg.MetricsAddr = v
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) {
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

// compileJQFilters parses and compiles each jq expression up front so a bad
// filter fails before any RPC traffic.
func compileJQFilters(exprs []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(exprs))
	for i, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}
	return compiled, nil
}

// filterRecords keeps only records for which every compiled jq filter
// evaluates to a truthy value.
func filterRecords(records []*history.TransactionRecord, filters []*gojq.Code) ([]*history.TransactionRecord, error) {
	if len(filters) == 0 {
		return records, nil
	}

	kept := make([]*history.TransactionRecord, 0, len(records))
	for _, record := range records {
		match, err := recordMatches(record, filters)
		if err != nil {
			return nil, err
		}
		if match {
			kept = append(kept, record)
		}
	}
	return kept, nil
}

func recordMatches(record *history.TransactionRecord, filters []*gojq.Code) (bool, error) {
	// Round-trip through JSON so filters see the record's wire shape.
	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record %s: %w", record.TxHash, err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to unmarshal record %s: %w", record.TxHash, err)
	}

	for _, code := range filters {
		iter := code.Run(doc)
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if _, isErr := v.(error); isErr {
			return false, nil
		}
		if !isTruthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}
