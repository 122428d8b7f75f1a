// Package eth wraps the ledger RPC connection. Every read goes through the
// shared retry schedule; rate-limit and transport faults are surfaced as
// ErrUnavailable so callers can treat them as "temporarily unknown" rather
// than hard failures.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/config"
)

// ErrUnavailable marks an RPC-layer fault (rate limiting, timeout, transient
// network error) after the retry budget is spent. Callers in the oracle and
// router treat it the same as "does not exist".
var ErrUnavailable = errors.New("ledger temporarily unavailable")

// Client wraps the ledger client with retry logic and convenience methods.
type Client struct {
	client  *ethclient.Client
	backoff Backoff
	chainID *big.Int
}

// NewClient connects to the configured RPC endpoint.
func NewClient(cfg config.RPCConfig) (*Client, error) {
	client, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger node: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	log.Info().
		Str("url", cfg.URL).
		Str("chainID", chainID.String()).
		Msg("Connected to ledger node")

	return &Client{
		client:  client,
		backoff: Backoff{Attempts: cfg.RetryAttempts, Base: cfg.RetryDelay},
		chainID: chainID,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() {
	c.client.Close()
}

// ChainID returns the chain ID observed at connect time.
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// Call executes a read-only contract call with retry.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.CallFrom(ctx, common.Address{}, to, data, nil)
}

// CallFrom executes a read-only contract call with an explicit caller and
// value. Fee detection uses the caller for balance-dependent simulations.
func (c *Client) CallFrom(ctx context.Context, from, to common.Address, data []byte, value *big.Int) ([]byte, error) {
	msg := ethereum.CallMsg{From: from, To: &to, Data: data, Value: value}

	var result []byte
	err := c.backoff.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = c.client.CallContract(ctx, msg, nil)
		if callErr != nil && isTransient(callErr) {
			log.Warn().Err(callErr).Str("to", to.Hex()).Msg("Contract call failed, retrying...")
			return callErr
		}
		if callErr != nil {
			// Reverts are not transient; do not burn the retry budget.
			return permanent{callErr}
		}
		return nil
	})
	if err != nil {
		var p permanent
		if errors.As(err, &p) {
			return nil, p.err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

// Balance returns the native balance of an account, bypassing any cache.
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		balance, err = c.client.BalanceAt(ctx, account, nil)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to get balance, retrying...")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return balance, nil
}

// EstimateGas estimates gas for a transaction with retry.
func (c *Client) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error) {
	msg := ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}

	var gas uint64
	err := c.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		gas, err = c.client.EstimateGas(ctx, msg)
		if err != nil && isTransient(err) {
			log.Warn().Err(err).Msg("Gas estimation failed, retrying...")
			return err
		}
		if err != nil {
			return permanent{err}
		}
		return nil
	})
	if err != nil {
		var p permanent
		if errors.As(err, &p) {
			return 0, p.err
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return gas, nil
}

// SuggestGasPrice returns the node's gas price suggestion with retry.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := c.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		price, err = c.client.SuggestGasPrice(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return price, nil
}

// PendingNonce returns the account's next nonce.
func (c *Client) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	err := c.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		nonce, err = c.client.PendingNonceAt(ctx, account)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nonce, nil
}

// SendTransaction submits a signed transaction. Submission is never retried;
// a duplicate send would double-spend the nonce.
func (c *Client) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	return c.client.SendTransaction(ctx, tx)
}

// TransactionReceipt fetches the receipt for a transaction, nil result while
// pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return c.client.TransactionReceipt(ctx, txHash)
}

// permanent wraps an error that must not be retried (contract reverts).
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// isTransient classifies RPC-layer faults worth retrying. Revert-style errors
// carry contract semantics and must pass through untouched.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "rate limit", "too many requests",
		"timeout", "timed out",
		"connection refused", "connection reset",
		"eof", "circuit breaker",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
