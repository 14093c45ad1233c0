package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrUnverified marks a swap the chain does not vouch for: unknown, pending,
// reverted, or sent by someone other than the reporting user.
var ErrUnverified = errors.New("swap not verified")

const rpcTimeout = 5 * time.Second

// Client is the subset of ethclient.Client used for verification.
type Client interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

type SwapVerifier struct {
	client  Client
	chainID *big.Int
}

func NewSwapVerifier(client Client, chainID *big.Int) *SwapVerifier {
	return &SwapVerifier{client: client, chainID: chainID}
}

// Dial connects to rpcURL and reads the chain id once.
func Dial(ctx context.Context, rpcURL string) (*SwapVerifier, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	return NewSwapVerifier(client, chainID), nil
}

func (v *SwapVerifier) VerifySwap(ctx context.Context, txHash, userAddress string) error {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	hash := common.HexToHash(txHash)
	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return fmt.Errorf("%w: receipt not found", ErrUnverified)
	}
	if err != nil {
		return fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: transaction reverted", ErrUnverified)
	}

	tx, pending, err := v.client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return fmt.Errorf("%w: transaction not found", ErrUnverified)
	}
	if err != nil {
		return fmt.Errorf("fetch transaction: %w", err)
	}
	if pending {
		return fmt.Errorf("%w: transaction pending", ErrUnverified)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(v.chainID), tx)
	if err != nil {
		return fmt.Errorf("%w: recover sender: %v", ErrUnverified, err)
	}
	if !strings.EqualFold(sender.Hex(), userAddress) {
		return fmt.Errorf("%w: sender %s is not %s", ErrUnverified, sender.Hex(), userAddress)
	}
	return nil
}
