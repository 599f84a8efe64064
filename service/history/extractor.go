package history

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// LamportsPerSOL converts the smallest native unit to display units.
const LamportsPerSOL = 1_000_000_000

// Well-known Solana program IDs
var (
	// SystemProgramID is the native SOL transfer program
	SystemProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")

	// TokenProgramID is the SPL Token program
	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// Token2022ProgramID is the Token Extensions program (Token-2022)
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// Recoverable per-transaction failures. The orchestrator logs these and
// skips the transaction; they never abort a batch.
var (
	// ErrUnsupportedEncoding indicates the transaction payload could not be decoded.
	ErrUnsupportedEncoding = errors.New("unsupported transaction encoding")

	// ErrMissingMeta indicates the ledger returned no status metadata for the transaction.
	ErrMissingMeta = errors.New("missing transaction metadata")
)

// Extractor computes the wallet's net balance deltas within one transaction.
// The authoritative amounts always come from the pre/post balance snapshots;
// instructions are scanned only to report what kinds of transfers were present.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a balance delta extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract computes the wallet's native and token deltas for one transaction.
//
// The native delta is (post - pre) at the wallet's first position in the
// account-key table, minus the transaction fee. The fee is subtracted
// unconditionally, whether or not the wallet was the fee payer.
//
// Token deltas are correlated across the pre and post snapshot lists by
// (account index, mint, owner), never by list position. The scalar token
// delta is the sum across all of the wallet's correlated entries; the
// reported mint is the one with the largest absolute per-mint delta.
func (e *Extractor) Extract(signature string, result *rpc.GetTransactionResult, wallet solana.PublicKey) (*Extraction, error) {
	if result == nil || result.Meta == nil {
		return nil, ErrMissingMeta
	}
	meta := result.Meta

	if result.Transaction == nil {
		return nil, ErrUnsupportedEncoding
	}
	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedEncoding, err)
	}
	accountKeys := tx.Message.AccountKeys

	// First match only when the wallet appears at several indices.
	walletIndex := -1
	for i, key := range accountKeys {
		if key.Equals(wallet) {
			walletIndex = i
			break
		}
	}

	var nativeDelta float64
	if walletIndex >= 0 && walletIndex < len(meta.PreBalances) && walletIndex < len(meta.PostBalances) {
		nativeDelta = (float64(meta.PostBalances[walletIndex]) - float64(meta.PreBalances[walletIndex])) / LamportsPerSOL
	}

	// The fee comes out of the native delta regardless of who paid it.
	fee := float64(meta.Fee) / LamportsPerSOL
	nativeDelta -= fee

	tokenDelta, mint := e.tokenDeltas(meta, wallet)

	nativeTransfers, tokenTransfers := countTransferInstructions(tx, meta)
	e.logger.Debug("extracted balance deltas",
		"signature", signature,
		"native_delta", nativeDelta,
		"token_delta", tokenDelta,
		"mint", mint,
		"native_transfer_instructions", nativeTransfers,
		"token_transfer_instructions", tokenTransfers,
	)

	ext := &Extraction{
		Signature: signature,
		Fee:       fee,
		Delta: BalanceDelta{
			Native: nativeDelta,
			Token:  tokenDelta,
			Mint:   mint,
		},
	}

	if result.BlockTime != nil {
		ext.BlockTime = result.BlockTime.Time()
	}
	if len(accountKeys) > 0 {
		ext.Source = accountKeys[0].String()
	}
	if len(accountKeys) > 1 {
		ext.Destination = accountKeys[1].String()
	}

	return ext, nil
}

// tokenBalanceKey identifies one token account snapshot entry.
// Correlating by this key instead of list position tolerates accounts being
// added, removed, or reordered between the pre and post lists.
type tokenBalanceKey struct {
	accountIndex uint16
	mint         string
	owner        string
}

// tokenDeltas sums the wallet's token balance changes across the pre/post
// snapshots and picks the dominant mint. An entry present on only one side
// is treated as having a zero balance on the other: token accounts with no
// balance are routinely omitted from a snapshot list.
func (e *Extractor) tokenDeltas(meta *rpc.TransactionMeta, wallet solana.PublicKey) (float64, string) {
	if meta.PreTokenBalances == nil || meta.PostTokenBalances == nil {
		return 0, ""
	}

	pre := make(map[tokenBalanceKey]float64)
	for _, balance := range meta.PreTokenBalances {
		if balance.Owner == nil || !balance.Owner.Equals(wallet) {
			continue
		}
		pre[balanceKey(balance)] = uiAmount(balance)
	}

	perMint := make(map[string]float64)
	var mintOrder []string
	addDelta := func(mint string, delta float64) {
		if _, seen := perMint[mint]; !seen {
			mintOrder = append(mintOrder, mint)
		}
		perMint[mint] += delta
	}

	matched := make(map[tokenBalanceKey]bool)
	for _, balance := range meta.PostTokenBalances {
		if balance.Owner == nil || !balance.Owner.Equals(wallet) {
			continue
		}
		key := balanceKey(balance)
		matched[key] = true
		addDelta(key.mint, uiAmount(balance)-pre[key])
	}

	// Accounts that appear only in the pre snapshot were emptied or closed.
	for key, amount := range pre {
		if !matched[key] {
			addDelta(key.mint, -amount)
		}
	}

	var total float64
	var dominantMint string
	var dominantMagnitude float64
	for _, mint := range mintOrder {
		delta := perMint[mint]
		total += delta
		if magnitude := abs(delta); magnitude >= zeroTolerance && magnitude > dominantMagnitude {
			dominantMint = mint
			dominantMagnitude = magnitude
		}
	}

	if len(mintOrder) > 1 {
		e.logger.Debug("multiple mints touched, reporting dominant mint",
			"mints", len(mintOrder),
			"dominant_mint", dominantMint,
		)
	}

	return total, dominantMint
}

func balanceKey(balance rpc.TokenBalance) tokenBalanceKey {
	key := tokenBalanceKey{
		accountIndex: balance.AccountIndex,
		mint:         balance.Mint.String(),
	}
	if balance.Owner != nil {
		key.owner = balance.Owner.String()
	}
	return key
}

func uiAmount(balance rpc.TokenBalance) float64 {
	if balance.UiTokenAmount == nil || balance.UiTokenAmount.UiAmount == nil {
		return 0
	}
	return *balance.UiTokenAmount.UiAmount
}

// countTransferInstructions scans top-level and inner instructions for
// native and token-program transfers. This is diagnostic only: amounts are
// never taken from instruction payloads.
func countTransferInstructions(tx *solana.Transaction, meta *rpc.TransactionMeta) (nativeCount, tokenCount int) {
	accountKeys := tx.Message.AccountKeys

	classify := func(instruction solana.CompiledInstruction) {
		if int(instruction.ProgramIDIndex) >= len(accountKeys) {
			return
		}
		programID := accountKeys[instruction.ProgramIDIndex]
		switch {
		case programID.Equals(SystemProgramID):
			nativeCount++
		case programID.Equals(TokenProgramID), programID.Equals(Token2022ProgramID):
			tokenCount++
		}
	}

	for _, instruction := range tx.Message.Instructions {
		classify(instruction)
	}
	for _, inner := range meta.InnerInstructions {
		for _, instruction := range inner.Instructions {
			classify(solana.CompiledInstruction{
				ProgramIDIndex: instruction.ProgramIDIndex,
				Accounts:       instruction.Accounts,
				Data:           instruction.Data,
			})
		}
	}

	return nativeCount, tokenCount
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
