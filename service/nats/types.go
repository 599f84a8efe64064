package nats

import (
	"time"

	"github.com/solhist/solhist/service/history"
)

// RecordEvent represents a classified transaction record published to NATS.
// This is published to the subject "records.{wallet_address}" in JetStream.
type RecordEvent struct {
	// Record identifiers
	TxHash        string `json:"tx_hash"`
	WalletAddress string `json:"wallet_address"`
	Category      string `json:"category"`

	// Record details
	Date             string   `json:"date"`
	TxSrc            string   `json:"tx_src"`
	TxDest           string   `json:"tx_dest"`
	SentAmount       *float64 `json:"sent_amount,omitempty"`
	SentCurrency     *string  `json:"sent_currency,omitempty"`
	ReceivedAmount   *float64 `json:"received_amount,omitempty"`
	ReceivedCurrency *string  `json:"received_currency,omitempty"`
	FeeAmount        float64  `json:"fee_amount"`
	FeeCurrency      string   `json:"fee_currency"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromRecord converts a transaction record to a RecordEvent for publishing.
func FromRecord(wallet string, category history.Category, record *history.TransactionRecord) *RecordEvent {
	return &RecordEvent{
		TxHash:           record.TxHash,
		WalletAddress:    wallet,
		Category:         string(category),
		Date:             record.Date,
		TxSrc:            record.TxSrc,
		TxDest:           record.TxDest,
		SentAmount:       record.SentAmount,
		SentCurrency:     record.SentCurrency,
		ReceivedAmount:   record.ReceivedAmount,
		ReceivedCurrency: record.ReceivedCurrency,
		FeeAmount:        record.FeeAmount,
		FeeCurrency:      record.FeeCurrency,
		PublishedAt:      time.Now().UTC(),
	}
}
