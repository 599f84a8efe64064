package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solhist/solhist/service/metrics"
)

// MetadataProgramID is the Metaplex Token Metadata program.
var MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// AccountFetcher is the subset of the RPC surface the resolver needs.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// tokenMetadata is the borsh-encoded prefix of a Metaplex metadata account.
// Fields after URI exist on chain but are not needed here, and borsh decoding
// stops once the target struct is filled.
type tokenMetadata struct {
	Key             uint8
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

// Resolver resolves a token mint to its display symbol by reading the
// Metaplex metadata account at the mint's program-derived address.
// Results are cached per mint for the lifetime of the resolver, including
// negative results, so each distinct mint costs at most one account fetch.
type Resolver struct {
	fetcher AccountFetcher
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	cache map[string]cachedSymbol
}

type cachedSymbol struct {
	symbol string
	found  bool
}

// NewResolver creates a symbol resolver backed by the given account fetcher.
// If m is nil, no metrics will be recorded.
func NewResolver(fetcher AccountFetcher, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		logger:  logger,
		metrics: m,
		cache:   make(map[string]cachedSymbol),
	}
}

// Resolve returns the display symbol for the given mint address.
// The boolean is false when no symbol could be determined; callers are
// expected to substitute a placeholder label rather than fail.
func (r *Resolver) Resolve(ctx context.Context, mintAddress string) (string, bool) {
	r.mu.Lock()
	if cached, ok := r.cache[mintAddress]; ok {
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.RecordSymbolLookup("cache_hit")
		}
		return cached.symbol, cached.found
	}
	r.mu.Unlock()

	symbol, found := r.lookup(ctx, mintAddress)

	r.mu.Lock()
	r.cache[mintAddress] = cachedSymbol{symbol: symbol, found: found}
	r.mu.Unlock()

	return symbol, found
}

func (r *Resolver) lookup(ctx context.Context, mintAddress string) (string, bool) {
	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		r.logger.DebugContext(ctx, "invalid mint address", "mint", mintAddress, "error", err)
		if r.metrics != nil {
			r.metrics.RecordSymbolLookup("error")
		}
		return "", false
	}

	pda, err := DeriveMetadataAddress(mint)
	if err != nil {
		r.logger.DebugContext(ctx, "failed to derive metadata address", "mint", mintAddress, "error", err)
		if r.metrics != nil {
			r.metrics.RecordSymbolLookup("error")
		}
		return "", false
	}

	res, err := r.fetcher.GetAccountInfo(ctx, pda)
	if err != nil {
		r.logger.DebugContext(ctx, "failed to fetch metadata account",
			"mint", mintAddress,
			"pda", pda.String(),
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.RecordSymbolLookup("error")
		}
		return "", false
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		if r.metrics != nil {
			r.metrics.RecordSymbolLookup("not_found")
		}
		return "", false
	}

	symbol, err := decodeSymbol(res.Value.Data.GetBinary())
	if err != nil {
		r.logger.DebugContext(ctx, "failed to decode metadata account",
			"mint", mintAddress,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.RecordSymbolLookup("error")
		}
		return "", false
	}
	if symbol == "" {
		if r.metrics != nil {
			r.metrics.RecordSymbolLookup("not_found")
		}
		return "", false
	}

	if r.metrics != nil {
		r.metrics.RecordSymbolLookup("resolved")
	}
	return symbol, true
}

// DeriveMetadataAddress computes the program-derived address of the Metaplex
// metadata account for a mint: seeds are "metadata", the metadata program id,
// and the mint itself.
func DeriveMetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte("metadata"),
		MetadataProgramID.Bytes(),
		mint.Bytes(),
	}
	pda, _, err := solana.FindProgramAddress(seeds, MetadataProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata PDA: %w", err)
	}
	return pda, nil
}

// decodeSymbol borsh-decodes the metadata account and returns the trimmed symbol.
// On-chain name/symbol/uri fields are padded with trailing NUL bytes.
func decodeSymbol(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty account data")
	}

	var md tokenMetadata
	decoder := bin.NewBorshDecoder(data)
	if err := decoder.Decode(&md); err != nil {
		return "", fmt.Errorf("failed to decode token metadata: %w", err)
	}

	symbol := strings.TrimRight(md.Symbol, "\x00")
	return strings.TrimSpace(symbol), nil
}
