package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/solhist/solhist/service/history"
)

// NASentinel is written for absent optional fields.
const NASentinel = "N/A"

// Header is the exact output column order.
var Header = []string{
	"date",
	"tx_hash",
	"tx_src",
	"tx_dest",
	"sent_amount",
	"sent_currency",
	"received_amount",
	"received_currency",
	"fee_amount",
	"fee_currency",
}

// CSVExporter persists emitted record sequences as CSV files.
type CSVExporter struct {
	logger *slog.Logger
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(logger *slog.Logger) *CSVExporter {
	return &CSVExporter{logger: logger}
}

// Save writes the records to path: one header row, one row per record, in
// the given order. An empty record sequence writes nothing and creates no
// file.
func (e *CSVExporter) Save(records []*history.TransactionRecord, path string) error {
	if len(records) == 0 {
		e.logger.Info("no records to export, skipping file", "path", path)
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(recordRow(record)); err != nil {
			return fmt.Errorf("failed to write record %s: %w", record.TxHash, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	e.logger.Info("transactions saved",
		"path", path,
		"count", len(records),
	)
	return nil
}

func recordRow(record *history.TransactionRecord) []string {
	return []string{
		record.Date,
		record.TxHash,
		record.TxSrc,
		record.TxDest,
		formatOptionalAmount(record.SentAmount),
		formatOptionalString(record.SentCurrency),
		formatOptionalAmount(record.ReceivedAmount),
		formatOptionalString(record.ReceivedCurrency),
		formatAmount(record.FeeAmount),
		record.FeeCurrency,
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalAmount(v *float64) string {
	if v == nil {
		return NASentinel
	}
	return formatAmount(*v)
}

func formatOptionalString(v *string) string {
	if v == nil {
		return NASentinel
	}
	return *v
}
