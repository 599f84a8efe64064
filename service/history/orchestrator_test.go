package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLedger implements Ledger for testing.
type mockLedger struct {
	signatures []*rpc.TransactionSignature
	results    map[string]*rpc.GetTransactionResult
	fetchErrs  map[string]error
	listErr    error
}

func (m *mockLedger) ListSignatures(ctx context.Context, wallet solana.PublicKey) ([]*rpc.TransactionSignature, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.signatures, nil
}

func (m *mockLedger) FetchTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	if err, ok := m.fetchErrs[signature.String()]; ok {
		return nil, err
	}
	return m.results[signature.String()], nil
}

// recordingSink captures records passed to StoreRecord.
type recordingSink struct {
	wallets    []string
	categories []Category
	records    []*TransactionRecord
	err        error
}

func (s *recordingSink) StoreRecord(ctx context.Context, wallet string, category Category, record *TransactionRecord) error {
	s.wallets = append(s.wallets, wallet)
	s.categories = append(s.categories, category)
	s.records = append(s.records, record)
	return s.err
}

var testSigs = []solana.Signature{
	solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"),
	solana.MustSignatureFromBase58("2TgM4N8qCMqLvfR8dxqTQgKygPNzT5KQkN5b5sT7eZPEkdxyLTXGnNQB3j7KG4DPFg5Qez5yNJBQRQ5r7DDnFfjG"),
	solana.MustSignatureFromBase58("3LzUfBWvh7uN5sNTVPkbDGq5SNrPBKDYTJqFmH8nHq6Z9VGJ7iCxB2rLFZsKrQNuJfTnKQ5D5YqGrNqvnKQZXMQE"),
}

// depositResult builds a transaction where the wallet receives the given
// amount of SOL with no fee.
func depositResult(t *testing.T, lamports uint64) *rpc.GetTransactionResult {
	meta := &rpc.TransactionMeta{
		Fee:          0,
		PreBalances:  []uint64{10 * LamportsPerSOL, 1 * LamportsPerSOL},
		PostBalances: []uint64{10*LamportsPerSOL - lamports, 1*LamportsPerSOL + lamports},
	}
	return makeResult(t, []solana.PublicKey{otherParty, testWallet}, meta, time.Unix(1700000000, 0))
}

// quietResult builds a transaction with no balance change for the wallet.
func quietResult(t *testing.T) *rpc.GetTransactionResult {
	meta := &rpc.TransactionMeta{
		Fee:          0,
		PreBalances:  []uint64{10 * LamportsPerSOL, 1 * LamportsPerSOL},
		PostBalances: []uint64{10 * LamportsPerSOL, 1 * LamportsPerSOL},
	}
	return makeResult(t, []solana.PublicKey{otherParty, testWallet}, meta, time.Unix(1700000000, 0))
}

func sigDescriptors(sigs ...solana.Signature) []*rpc.TransactionSignature {
	out := make([]*rpc.TransactionSignature, 0, len(sigs))
	for i, sig := range sigs {
		bt := solana.UnixTimeSeconds(1700000000 - int64(i))
		out = append(out, &rpc.TransactionSignature{
			Signature: sig,
			Slot:      uint64(100 - i),
			BlockTime: &bt,
		})
	}
	return out
}

func newTestOrchestrator(ledger Ledger) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(ledger, NewExtractor(logger), NewRecordBuilder(nil, logger), nil, logger)
}

func TestRun_EmitsRecordsInSignatureOrder(t *testing.T) {
	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0], testSigs[1], testSigs[2]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[0].String(): depositResult(t, 1*LamportsPerSOL),
			testSigs[1].String(): depositResult(t, 2*LamportsPerSOL),
			testSigs[2].String(): depositResult(t, 3*LamportsPerSOL),
		},
	}

	records, err := newTestOrchestrator(ledger).Run(context.Background(), testWallet, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, testSigs[0].String(), records[0].TxHash)
	assert.Equal(t, testSigs[1].String(), records[1].TxHash)
	assert.Equal(t, testSigs[2].String(), records[2].TxHash)
}

func TestRun_TransportErrorSkipsOnlyThatSignature(t *testing.T) {
	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0], testSigs[1], testSigs[2]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[0].String(): depositResult(t, 1*LamportsPerSOL),
			testSigs[2].String(): depositResult(t, 3*LamportsPerSOL),
		},
		fetchErrs: map[string]error{
			testSigs[1].String(): errors.New("connection reset"),
		},
	}

	records, err := newTestOrchestrator(ledger).Run(context.Background(), testWallet, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, testSigs[0].String(), records[0].TxHash)
	assert.Equal(t, testSigs[2].String(), records[1].TxHash)
}

func TestRun_ParseFailureSkipsOnlyThatSignature(t *testing.T) {
	broken := &rpc.GetTransactionResult{} // no meta, no transaction

	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0], testSigs[1]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[0].String(): broken,
			testSigs[1].String(): depositResult(t, 1*LamportsPerSOL),
		},
	}

	records, err := newTestOrchestrator(ledger).Run(context.Background(), testWallet, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, testSigs[1].String(), records[0].TxHash)
}

func TestRun_ZeroDeltaTransactionsAreDropped(t *testing.T) {
	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0], testSigs[1]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[0].String(): quietResult(t),
			testSigs[1].String(): depositResult(t, 1*LamportsPerSOL),
		},
	}

	records, err := newTestOrchestrator(ledger).Run(context.Background(), testWallet, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, testSigs[1].String(), records[0].TxHash)
}

func TestRun_OneLamportDeltaIsEmitted(t *testing.T) {
	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[0].String(): depositResult(t, 1),
		},
	}

	records, err := newTestOrchestrator(ledger).Run(context.Background(), testWallet, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NotNil(t, records[0].ReceivedAmount)
	assert.InDelta(t, 1e-9, *records[0].ReceivedAmount, 1e-18)
}

func TestRun_OperationLimit(t *testing.T) {
	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0], testSigs[1], testSigs[2]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[0].String(): depositResult(t, 1*LamportsPerSOL),
			testSigs[1].String(): depositResult(t, 2*LamportsPerSOL),
			testSigs[2].String(): depositResult(t, 3*LamportsPerSOL),
		},
	}

	records, err := newTestOrchestrator(ledger).Run(context.Background(), testWallet, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, testSigs[0].String(), records[0].TxHash)
	assert.Equal(t, testSigs[1].String(), records[1].TxHash)
}

func TestRun_LimitCountsSkippedSignatures(t *testing.T) {
	// A failed fetch still consumes one slot of the operation limit.
	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0], testSigs[1], testSigs[2]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[1].String(): depositResult(t, 2*LamportsPerSOL),
			testSigs[2].String(): depositResult(t, 3*LamportsPerSOL),
		},
		fetchErrs: map[string]error{
			testSigs[0].String(): errors.New("timeout"),
		},
	}

	records, err := newTestOrchestrator(ledger).Run(context.Background(), testWallet, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, testSigs[1].String(), records[0].TxHash)
}

func TestRun_ListSignaturesFailureIsFatal(t *testing.T) {
	ledger := &mockLedger{listErr: errors.New("node unavailable")}

	_, err := newTestOrchestrator(ledger).Run(context.Background(), testWallet, 0)
	require.Error(t, err)
}

func TestRun_SinksReceiveEmittedRecords(t *testing.T) {
	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0], testSigs[1]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[0].String(): depositResult(t, 1*LamportsPerSOL),
			testSigs[1].String(): quietResult(t),
		},
	}

	orch := newTestOrchestrator(ledger)
	sink := &recordingSink{}
	orch.AddSink(sink)

	records, err := orch.Run(context.Background(), testWallet, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Dropped transactions never reach the sink
	require.Len(t, sink.records, 1)
	assert.Equal(t, testWallet.String(), sink.wallets[0])
	assert.Equal(t, CategorySolDeposit, sink.categories[0])
	assert.Equal(t, records[0], sink.records[0])
}

func TestRun_SinkFailureDoesNotAffectBatch(t *testing.T) {
	ledger := &mockLedger{
		signatures: sigDescriptors(testSigs[0], testSigs[1]),
		results: map[string]*rpc.GetTransactionResult{
			testSigs[0].String(): depositResult(t, 1*LamportsPerSOL),
			testSigs[1].String(): depositResult(t, 2*LamportsPerSOL),
		},
	}

	orch := newTestOrchestrator(ledger)
	orch.AddSink(&recordingSink{err: errors.New("database down")})

	records, err := orch.Run(context.Background(), testWallet, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
