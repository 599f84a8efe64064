package main

import (
	"testing"

	"github.com/solhist/solhist/service/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func testRecords() []*history.TransactionRecord {
	return []*history.TransactionRecord{
		{
			Date:             "2024-03-15 12:30:45",
			TxHash:           "sig-1",
			TxSrc:            "src",
			TxDest:           "dest",
			ReceivedAmount:   f(1.5),
			ReceivedCurrency: s("SOL"),
			FeeAmount:        0.000005,
			FeeCurrency:      "SOL",
		},
		{
			Date:             "2024-03-15 12:31:00",
			TxHash:           "sig-2",
			TxSrc:            "src",
			TxDest:           "dest",
			SentAmount:       f(50),
			SentCurrency:     s("USDC"),
			FeeAmount:        0.000005,
			FeeCurrency:      "SOL",
		},
	}
}

func TestCompileJQFilters_BadExpressionFails(t *testing.T) {
	_, err := compileJQFilters([]string{".sent_currency =="})
	require.Error(t, err)
}

func TestFilterRecords_NoFiltersKeepsAll(t *testing.T) {
	records := testRecords()

	kept, err := filterRecords(records, nil)
	require.NoError(t, err)
	assert.Len(t, kept, 2)
}

func TestFilterRecords_MatchesOnRecordFields(t *testing.T) {
	filters, err := compileJQFilters([]string{`.sent_currency == "USDC"`})
	require.NoError(t, err)

	kept, err := filterRecords(testRecords(), filters)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "sig-2", kept[0].TxHash)
}

func TestFilterRecords_AllFiltersMustMatch(t *testing.T) {
	filters, err := compileJQFilters([]string{
		`.fee_currency == "SOL"`,
		`.received_currency == "SOL"`,
	})
	require.NoError(t, err)

	kept, err := filterRecords(testRecords(), filters)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "sig-1", kept[0].TxHash)
}

func TestFilterRecords_FilterErrorDropsRecord(t *testing.T) {
	// Adding a number to a string errors inside jq; the record is dropped
	// rather than failing the run.
	filters, err := compileJQFilters([]string{`.tx_hash + 1`})
	require.NoError(t, err)

	kept, err := filterRecords(testRecords(), filters)
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy(0))
	assert.True(t, isTruthy("no"))
	assert.True(t, isTruthy([]interface{}{}))
}
