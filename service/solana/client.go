package solana

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solhist/solhist/service/metrics"
)

// Client provides methods for reading a wallet's transaction history.
// It wraps the RPC client with retry logic and rate-limit handling.
type Client struct {
	rpc     RPCClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new Solana ledger client.
// If m is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:     rpcClient,
		logger:  logger,
		metrics: m,
	}
}

// ListSignatures fetches all signature descriptors for the wallet, newest first.
// The node returns them in descending slot order already; we preserve that order.
func (c *Client) ListSignatures(ctx context.Context, wallet solana.PublicKey) ([]*rpc.TransactionSignature, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Commitment: rpc.CommitmentConfirmed,
	}

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddress(ctx, wallet, opts)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		c.logger.ErrorContext(ctx, "failed to get signatures",
			"wallet", wallet.String(),
			"error", err,
		)
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("GetSignaturesForAddress", status, duration)
	}
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched transaction signatures",
		"wallet", wallet.String(),
		"count", len(signatures),
	)

	return signatures, nil
}

// FetchTransaction fetches a single decoded transaction at confirmed commitment.
// It retries transient failures with exponential backoff and uses a longer
// backoff for rate-limit responses. Legacy transactions that fail to parse
// with version support are retried without it.
func (c *Client) FetchTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	var result *rpc.GetTransactionResult
	var err error

	maxVersion := uint64(0)

	// Public RPC: 3 attempts max to avoid long delays.
	// Premium RPC: can increase to 5.
	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		opts := &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		}
		start := time.Now()
		result, err = c.rpc.GetTransaction(ctx, signature, opts)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil {
			status = "error"
		}
		if c.metrics != nil {
			c.metrics.RecordRPCCall("GetTransaction", status, duration)
		}

		if err == nil {
			return result, nil
		}

		// Handle rate limiting (429 Too Many Requests) with longer backoff
		if strings.Contains(err.Error(), "429") {
			if c.metrics != nil {
				c.metrics.RecordRateLimitHit("GetTransaction")
			}
			if attempt == maxAttempts-1 {
				break
			}
			backoff := time.Duration(2<<uint(attempt)) * time.Second // 2s, 4s
			c.logger.WarnContext(ctx, "rate limited, sleeping before retry",
				"signature", signature.String(),
				"attempt", attempt+1,
				"backoff_seconds", backoff.Seconds(),
			)
			if c.metrics != nil {
				c.metrics.RecordRPCRetry("GetTransaction", "rate_limit")
			}
			time.Sleep(backoff)
			continue
		}

		// Handle parsing errors for legacy transactions
		if strings.Contains(err.Error(), "expects '\"' or 'n', but found '{'") {
			c.logger.WarnContext(ctx, "could not parse as versioned tx, retrying as legacy",
				"signature", signature.String(),
			)
			if c.metrics != nil {
				c.metrics.RecordRPCRetry("GetTransaction", "parse_error")
			}

			legacyOpts := &rpc.GetTransactionOpts{
				Encoding:   solana.EncodingBase64,
				Commitment: rpc.CommitmentConfirmed,
			}
			legacyStart := time.Now()
			result, err = c.rpc.GetTransaction(ctx, signature, legacyOpts)
			legacyDuration := time.Since(legacyStart).Seconds()

			legacyStatus := "success"
			if err != nil {
				legacyStatus = "error"
			}
			if c.metrics != nil {
				c.metrics.RecordRPCCall("GetTransaction", legacyStatus, legacyDuration)
			}

			if err == nil {
				return result, nil
			}
		}

		// Exponential backoff for other errors (timeout, network, etc.).
		// No sleep after the final attempt: the error goes straight back.
		if attempt == maxAttempts-1 {
			break
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second // 1s, 2s
		c.logger.WarnContext(ctx, "failed to get transaction on attempt",
			"signature", signature.String(),
			"attempt", attempt+1,
			"error", err,
			"backoff_seconds", backoff.Seconds(),
		)
		if c.metrics != nil {
			c.metrics.RecordRPCRetry("GetTransaction", "timeout_or_error")
		}
		time.Sleep(backoff)
	}

	return nil, err
}
