package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solhist/solhist/service/db"
	"github.com/urfave/cli/v2"
)

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "Inspect persisted transaction records",
		Subcommands: []*cli.Command{
			listRecordsCommand(),
			getRecordCommand(),
		},
	}
}

func listRecordsCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List persisted records for a wallet",
		Aliases:   []string{"ls"},
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of records",
				Value:   50,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Skip this many records",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output records as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			wallet := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			records, err := store.ListRecordsByWallet(context.Background(), wallet, int32(c.Int("limit")), int32(c.Int("offset")))
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(records)
			}

			// Pretty table output
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTX HASH\tCATEGORY\tSENT\tRECEIVED\tFEE")
			for _, record := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%g %s\n",
					record.Date,
					record.TxHash,
					record.Category,
					formatOptionalSide(record.SentAmount, record.SentCurrency),
					formatOptionalSide(record.ReceivedAmount, record.ReceivedCurrency),
					record.FeeAmount,
					record.FeeCurrency,
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d records\n", len(records))
			return nil
		},
	}
}

func getRecordCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get one persisted record",
		ArgsUsage: "WALLET_ADDRESS TX_HASH",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output record as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires two arguments: wallet address and transaction hash")
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			record, err := store.GetRecord(context.Background(), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("failed to get record: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(record)
			}

			// Pretty output
			fmt.Printf("Date:      %s\n", record.Date)
			fmt.Printf("Tx Hash:   %s\n", record.TxHash)
			fmt.Printf("Wallet:    %s\n", record.WalletAddress)
			fmt.Printf("Category:  %s\n", record.Category)
			fmt.Printf("Source:    %s\n", record.TxSrc)
			fmt.Printf("Dest:      %s\n", record.TxDest)
			fmt.Printf("Sent:      %s\n", formatOptionalSide(record.SentAmount, record.SentCurrency))
			fmt.Printf("Received:  %s\n", formatOptionalSide(record.ReceivedAmount, record.ReceivedCurrency))
			fmt.Printf("Fee:       %g %s\n", record.FeeAmount, record.FeeCurrency)

			return nil
		},
	}
}

// Helper function to connect to database
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool)
	closer := func() { pool.Close() }

	return store, closer, nil
}

// Helper function to output JSON
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatOptionalSide renders an optional amount/currency pair for display.
func formatOptionalSide(amount *float64, currency *string) string {
	if amount == nil {
		return "-"
	}
	if currency == nil {
		return fmt.Sprintf("%g", *amount)
	}
	return fmt.Sprintf("%g %s", *amount, *currency)
}
