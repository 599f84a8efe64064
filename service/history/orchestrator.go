package history

import (
	"context"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solhist/solhist/service/metrics"
)

// Ledger yields raw decoded transactions for a wallet's history.
type Ledger interface {
	// ListSignatures returns the wallet's signature descriptors, newest first.
	ListSignatures(ctx context.Context, wallet solana.PublicKey) ([]*rpc.TransactionSignature, error)

	// FetchTransaction fetches one decoded transaction.
	FetchTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error)
}

// RecordSink receives each emitted record as a side channel (database,
// message bus). Sink failures are logged and never affect the batch.
type RecordSink interface {
	StoreRecord(ctx context.Context, wallet string, category Category, record *TransactionRecord) error
}

// Orchestrator drives the sequential per-signature pipeline:
// fetch, extract, classify, build. One signature is fully processed before
// the next begins; the accumulated record slice is the only mutable state.
type Orchestrator struct {
	ledger    Ledger
	extractor *Extractor
	builder   *RecordBuilder
	sinks     []RecordSink
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewOrchestrator creates a batch orchestrator.
// If m is nil, no metrics will be recorded.
func NewOrchestrator(ledger Ledger, extractor *Extractor, builder *RecordBuilder, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:    ledger,
		extractor: extractor,
		builder:   builder,
		logger:    logger,
		metrics:   m,
	}
}

// AddSink registers a side channel for emitted records.
func (o *Orchestrator) AddSink(sink RecordSink) {
	o.sinks = append(o.sinks, sink)
}

// Run processes the wallet's history and returns the emitted records in the
// same relative order as the ledger's signature list (newest first).
//
// A failure to list signatures is fatal. Everything after that is recovered
// per signature: transport and parse failures are logged and the signature
// is skipped; transactions with no balance change are silently dropped.
// When limit > 0, processing stops after that many signatures.
func (o *Orchestrator) Run(ctx context.Context, wallet solana.PublicKey, limit int) ([]*TransactionRecord, error) {
	signatures, err := o.ledger.ListSignatures(ctx, wallet)
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "fetched signature list",
		"wallet", wallet.String(),
		"count", len(signatures),
	)

	walletStr := wallet.String()
	records := make([]*TransactionRecord, 0, len(signatures))
	processed := 0

	for _, sig := range signatures {
		if record, ok := o.processSignature(ctx, walletStr, wallet, sig); ok {
			records = append(records, record)
		}

		processed++
		o.logger.InfoContext(ctx, "processed signature",
			"index", processed,
			"total", len(signatures),
		)

		if limit > 0 && processed >= limit {
			o.logger.InfoContext(ctx, "operation limit reached", "limit", limit)
			break
		}
	}

	return records, nil
}

// processSignature runs the fetch-extract-classify-build pipeline for one
// signature. The boolean is false when the signature produced no record,
// whether from a recovered failure or from no balance activity.
func (o *Orchestrator) processSignature(
	ctx context.Context,
	walletStr string,
	wallet solana.PublicKey,
	sig *rpc.TransactionSignature,
) (*TransactionRecord, bool) {
	result, err := o.ledger.FetchTransaction(ctx, sig.Signature)
	if err != nil {
		o.logger.ErrorContext(ctx, "transaction download failed, skipping",
			"signature", sig.Signature.String(),
			"error", err,
		)
		if o.metrics != nil {
			o.metrics.RecordTransactionProcessed(walletStr, "fetch_error")
		}
		return nil, false
	}

	ext, err := o.extractor.Extract(sig.Signature.String(), result, wallet)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to process transaction, skipping",
			"signature", sig.Signature.String(),
			"error", err,
		)
		if o.metrics != nil {
			o.metrics.RecordTransactionProcessed(walletStr, "parse_error")
		}
		return nil, false
	}

	native := Significant(ext.Delta.Native)
	token := Significant(ext.Delta.Token)

	// No relevant activity for this wallet; not an error.
	if native == nil && token == nil {
		o.logger.DebugContext(ctx, "no balance change, dropping transaction",
			"signature", sig.Signature.String(),
		)
		if o.metrics != nil {
			o.metrics.RecordTransactionProcessed(walletStr, "no_activity")
		}
		return nil, false
	}

	category := Classify(native, token)
	o.logger.InfoContext(ctx, "detected transaction",
		"signature", sig.Signature.String(),
		"category", string(category),
		"native_delta", ext.Delta.Native,
		"token_delta", ext.Delta.Token,
	)

	record := o.builder.Build(ctx, ext)

	if o.metrics != nil {
		o.metrics.RecordTransactionProcessed(walletStr, "emitted")
		o.metrics.RecordEmitted(walletStr, string(category))
	}

	for _, sink := range o.sinks {
		if err := sink.StoreRecord(ctx, walletStr, category, record); err != nil {
			o.logger.ErrorContext(ctx, "record sink failed",
				"signature", sig.Signature.String(),
				"error", err,
			)
		}
	}

	return record, true
}
