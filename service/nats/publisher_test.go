package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/solhist/solhist/service/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *history.TransactionRecord {
	sent := 0.5
	currency := "SOL"
	return &history.TransactionRecord{
		Date:         "2024-03-15 12:30:45",
		TxHash:       "sig-1",
		TxSrc:        "src",
		TxDest:       "dest",
		SentAmount:   &sent,
		SentCurrency: &currency,
		FeeAmount:    0.000005,
		FeeCurrency:  "SOL",
	}
}

func TestFromRecord(t *testing.T) {
	record := sampleRecord()

	event := FromRecord("wallet-1", history.CategorySolWithdrawal, record)

	assert.Equal(t, "sig-1", event.TxHash)
	assert.Equal(t, "wallet-1", event.WalletAddress)
	assert.Equal(t, string(history.CategorySolWithdrawal), event.Category)
	assert.Equal(t, record.SentAmount, event.SentAmount)
	assert.False(t, event.PublishedAt.IsZero())
}

func TestSink_PublishesRecordEvents(t *testing.T) {
	mock := NewMockPublisher()
	sink := NewSink(mock)

	err := sink.StoreRecord(context.Background(), "wallet-1", history.CategorySolWithdrawal, sampleRecord())
	require.NoError(t, err)

	events := mock.GetPublishedEventsForWallet("wallet-1")
	require.Len(t, events, 1)
	assert.Equal(t, "sig-1", events[0].TxHash)
}

func TestSink_PropagatesPublishError(t *testing.T) {
	mock := NewMockPublisher()
	mock.SetPublishError(errors.New("stream unavailable"))
	sink := NewSink(mock)

	err := sink.StoreRecord(context.Background(), "wallet-1", history.CategorySolWithdrawal, sampleRecord())
	require.Error(t, err)
}
