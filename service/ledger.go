package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/plasmx/referral-ledger/model"
)

// VoucherLedger is the part of the ledger store the voucher signer mutates.
type VoucherLedger interface {
	GetPayable(ctx context.Context, address string) (model.Wei, error)
	RecordClaim(ctx context.Context, address string, amount model.Wei) error
	IncrementNonce(ctx context.Context, address string) (uint64, error)
}

type AccrualLedger interface {
	CreditEarnings(ctx context.Context, entry *model.SwapLog) (bool, error)
	FindSwap(ctx context.Context, txHash string) (*model.SwapLog, error)
}

type AccountReader interface {
	FindAccount(ctx context.Context, address string) (*model.ReferrerAccount, error)
}

type BindingStore interface {
	BindReferrer(ctx context.Context, binding *model.ReferralBinding) (bool, error)
	FindByUser(ctx context.Context, userAddress string) (*model.ReferralBinding, error)
	CountByReferrer(ctx context.Context, referrerAddress string) (int64, error)
}

type CodeStore interface {
	Create(ctx context.Context, code *model.ReferralCode) (bool, error)
	FindByCode(ctx context.Context, code string) (*model.ReferralCode, error)
	FindByOwner(ctx context.Context, owner string) (*model.ReferralCode, error)
}

// Signer produces EIP-712 signatures with the custody key.
type Signer interface {
	Configured() bool
	Address() common.Address
	SignTypedData(ctx context.Context, td apitypes.TypedData) ([]byte, error)
}

// SwapVerifier checks a reported swap against the chain.
type SwapVerifier interface {
	VerifySwap(ctx context.Context, txHash, userAddress string) error
}
