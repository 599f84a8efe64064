package history

import (
	"time"
)

// Category classifies the economic nature of a transaction from the signs
// of its native and token balance deltas.
type Category string

const (
	CategoryTokenSwap       Category = "Token Swap"
	CategorySolDeposit      Category = "SOL Deposit"
	CategorySolWithdrawal   Category = "SOL Withdrawal"
	CategoryTokenDeposit    Category = "Token Deposit"
	CategoryTokenWithdrawal Category = "Token Withdrawal"
	CategoryTokenPurchase   Category = "Token Purchase"
	CategoryUnknown         Category = "Unknown"
)

// SOLCurrency is the native-currency label used in records.
const SOLCurrency = "SOL"

// UnknownTokenLabel is the placeholder used when a token symbol cannot be resolved.
const UnknownTokenLabel = "Unknown SPL Token"

// BalanceDelta is the wallet's net balance change within one transaction,
// in display units. Mint is the dominant mint touched (largest absolute
// per-mint delta), empty when no token balance changed.
type BalanceDelta struct {
	Native float64
	Token  float64
	Mint   string
}

// Extraction couples the balance deltas with the transaction metadata
// needed to build a record.
type Extraction struct {
	Signature   string
	BlockTime   time.Time
	Source      string
	Destination string
	Fee         float64 // SOL
	Delta       BalanceDelta
}

// TransactionRecord is one canonical row of the exported history.
// It is created once per processed transaction and never mutated afterward.
type TransactionRecord struct {
	Date             string   `json:"date"`
	TxHash           string   `json:"tx_hash"`
	TxSrc            string   `json:"tx_src"`
	TxDest           string   `json:"tx_dest"`
	SentAmount       *float64 `json:"sent_amount"`
	SentCurrency     *string  `json:"sent_currency"`
	ReceivedAmount   *float64 `json:"received_amount"`
	ReceivedCurrency *string  `json:"received_currency"`
	FeeAmount        float64  `json:"fee_amount"`
	FeeCurrency      string   `json:"fee_currency"`
}
