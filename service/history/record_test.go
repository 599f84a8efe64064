package history

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResolver implements SymbolResolver for testing.
type stubResolver struct {
	symbols map[string]string
}

func (s *stubResolver) Resolve(ctx context.Context, mint string) (string, bool) {
	symbol, ok := s.symbols[mint]
	return symbol, ok
}

func newTestBuilder(resolver SymbolResolver) *RecordBuilder {
	return NewRecordBuilder(resolver, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func extraction(native, token float64, mint string) *Extraction {
	return &Extraction{
		Signature:   testSignature,
		BlockTime:   time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC),
		Source:      "src-address",
		Destination: "dest-address",
		Fee:         0.000005,
		Delta:       BalanceDelta{Native: native, Token: token, Mint: mint},
	}
}

func TestBuild_SolDeposit(t *testing.T) {
	builder := newTestBuilder(&stubResolver{})

	record := builder.Build(context.Background(), extraction(1.5, 0, ""))

	assert.Nil(t, record.SentAmount)
	assert.Nil(t, record.SentCurrency)
	require.NotNil(t, record.ReceivedAmount)
	assert.Equal(t, 1.5, *record.ReceivedAmount)
	require.NotNil(t, record.ReceivedCurrency)
	assert.Equal(t, "SOL", *record.ReceivedCurrency)
}

func TestBuild_TokenPurchase(t *testing.T) {
	mint := usdcMint.String()
	builder := newTestBuilder(&stubResolver{symbols: map[string]string{mint: "USDC"}})

	record := builder.Build(context.Background(), extraction(-0.5, 200, mint))

	require.NotNil(t, record.SentAmount)
	assert.Equal(t, 0.5, *record.SentAmount)
	require.NotNil(t, record.SentCurrency)
	assert.Equal(t, "SOL", *record.SentCurrency)
	require.NotNil(t, record.ReceivedAmount)
	assert.Equal(t, 200.0, *record.ReceivedAmount)
	require.NotNil(t, record.ReceivedCurrency)
	assert.Equal(t, "USDC", *record.ReceivedCurrency)
}

func TestBuild_TokenSwap(t *testing.T) {
	mint := usdcMint.String()
	builder := newTestBuilder(&stubResolver{symbols: map[string]string{mint: "USDC"}})

	record := builder.Build(context.Background(), extraction(2.0, -50, mint))

	require.NotNil(t, record.SentAmount)
	assert.Equal(t, 50.0, *record.SentAmount)
	require.NotNil(t, record.SentCurrency)
	assert.Equal(t, "USDC", *record.SentCurrency)
	require.NotNil(t, record.ReceivedAmount)
	assert.Equal(t, 2.0, *record.ReceivedAmount)
	require.NotNil(t, record.ReceivedCurrency)
	assert.Equal(t, "SOL", *record.ReceivedCurrency)
}

func TestBuild_FeeAlwaysPopulated(t *testing.T) {
	builder := newTestBuilder(&stubResolver{})

	for _, ext := range []*Extraction{
		extraction(1.5, 0, ""),
		extraction(-1.5, 0, ""),
		extraction(0, 0, ""),
	} {
		record := builder.Build(context.Background(), ext)
		assert.Equal(t, 0.000005, record.FeeAmount)
		assert.Equal(t, "SOL", record.FeeCurrency)
	}
}

func TestBuild_ResolverFailureFallsBackToPlaceholder(t *testing.T) {
	builder := newTestBuilder(&stubResolver{}) // knows no symbols

	record := builder.Build(context.Background(), extraction(0, -25, usdcMint.String()))

	require.NotNil(t, record.SentCurrency)
	assert.Equal(t, UnknownTokenLabel, *record.SentCurrency)
}

func TestBuild_NilResolverUsesPlaceholder(t *testing.T) {
	builder := newTestBuilder(nil)

	record := builder.Build(context.Background(), extraction(0, 25, usdcMint.String()))

	require.NotNil(t, record.ReceivedCurrency)
	assert.Equal(t, UnknownTokenLabel, *record.ReceivedCurrency)
}

func TestBuild_DateAndIdentity(t *testing.T) {
	builder := newTestBuilder(&stubResolver{})

	record := builder.Build(context.Background(), extraction(1.0, 0, ""))

	assert.Equal(t, "2024-03-15 12:30:45", record.Date)
	assert.Equal(t, testSignature, record.TxHash)
	assert.Equal(t, "src-address", record.TxSrc)
	assert.Equal(t, "dest-address", record.TxDest)
}

func TestBuild_MissingBlockTimeRendersEpoch(t *testing.T) {
	builder := newTestBuilder(&stubResolver{})
	ext := extraction(1.0, 0, "")
	ext.BlockTime = time.Time{}

	record := builder.Build(context.Background(), ext)

	assert.Equal(t, "1970-01-01 00:00:00", record.Date)
}
