package history

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// SymbolResolver resolves a token mint address to a display symbol.
// The boolean is false when no symbol could be determined.
type SymbolResolver interface {
	Resolve(ctx context.Context, mintAddress string) (string, bool)
}

// RecordBuilder assembles output records from extractions.
// Token currency labels come from the resolver; on any resolution failure
// the record gets a placeholder label instead of an error.
type RecordBuilder struct {
	resolver SymbolResolver
	logger   *slog.Logger
}

// NewRecordBuilder creates a record builder. The resolver may be nil, in
// which case all token labels fall back to the placeholder.
func NewRecordBuilder(resolver SymbolResolver, logger *slog.Logger) *RecordBuilder {
	return &RecordBuilder{
		resolver: resolver,
		logger:   logger,
	}
}

// Build derives the output record from the extraction's delta pair.
//
// The sent side is |min(native, token)| when either delta is negative; the
// received side is max(native, token) when either is positive. The currency
// on each side follows the sign: a negative native delta labels the sent
// side SOL, otherwise a negative token delta labels it with the resolved
// token symbol, and symmetrically for the received side. The fee is always
// populated in SOL, independent of the deltas.
func (b *RecordBuilder) Build(ctx context.Context, ext *Extraction) *TransactionRecord {
	sol := ext.Delta.Native
	token := ext.Delta.Token

	record := &TransactionRecord{
		Date:        formatDate(ext.BlockTime),
		TxHash:      ext.Signature,
		TxSrc:       ext.Source,
		TxDest:      ext.Destination,
		FeeAmount:   ext.Fee,
		FeeCurrency: SOLCurrency,
	}

	if sol < 0 || token < 0 {
		sent := math.Abs(math.Min(sol, token))
		record.SentAmount = &sent
	}
	if sol < 0 {
		record.SentCurrency = stringPtr(SOLCurrency)
	} else if token < 0 {
		record.SentCurrency = stringPtr(b.tokenLabel(ctx, ext.Delta.Mint))
	}

	if sol > 0 || token > 0 {
		received := math.Max(sol, token)
		record.ReceivedAmount = &received
	}
	if sol > 0 {
		record.ReceivedCurrency = stringPtr(SOLCurrency)
	} else if token > 0 {
		record.ReceivedCurrency = stringPtr(b.tokenLabel(ctx, ext.Delta.Mint))
	}

	return record
}

// tokenLabel resolves a mint to its symbol, falling back to the placeholder.
func (b *RecordBuilder) tokenLabel(ctx context.Context, mint string) string {
	if mint == "" || b.resolver == nil {
		return UnknownTokenLabel
	}
	symbol, ok := b.resolver.Resolve(ctx, mint)
	if !ok || symbol == "" {
		b.logger.DebugContext(ctx, "token symbol not resolved, using placeholder", "mint", mint)
		return UnknownTokenLabel
	}
	return symbol
}

// formatDate renders a block time for the output record. A missing block
// time renders as the epoch, matching the ledger's zero timestamp.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "1970-01-01 00:00:00"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func stringPtr(s string) *string {
	return &s
}
