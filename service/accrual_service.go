package service

import (
	"context"
	"errors"

	"github.com/plasmx/referral-ledger/chain"
	"github.com/plasmx/referral-ledger/logger"
	"github.com/plasmx/referral-ledger/model"
	"go.uber.org/zap"
)

// AccrualService 把上报的 swap 换算成手续费分成并记入推荐人收益，按 tx hash 幂等
type AccrualService struct {
	ledger   AccrualLedger
	bindings BindingStore
	fees     FeePolicy
	verifier SwapVerifier
}

// NewAccrualService takes an optional verifier; nil skips on-chain checks.
func NewAccrualService(ledger AccrualLedger, bindings BindingStore, fees FeePolicy, verifier SwapVerifier) *AccrualService {
	return &AccrualService{ledger: ledger, bindings: bindings, fees: fees, verifier: verifier}
}

type SwapReport struct {
	TxHash         string
	UserAddress    string
	GrossAmountWei string
}

type SwapResult struct {
	TxHash          string
	ReferrerAddress string
	PlatformFee     model.Wei
	ReferrerCut     model.Wei
	PlatformCut     model.Wei
	// Duplicate means the tx hash was already logged; the figures are the original ones.
	Duplicate bool
}

func (s *AccrualService) RecordSwap(ctx context.Context, report SwapReport) (*SwapResult, error) {
	txHash, ok := normalizeTxHash(report.TxHash)
	if !ok {
		return nil, newError(KindInvalidTxHash, "invalid transaction hash")
	}
	user, ok := NormalizeAddress(report.UserAddress)
	if !ok {
		return nil, newError(KindInvalidAddress, "invalid user address")
	}
	if !amountPattern.MatchString(report.GrossAmountWei) {
		return nil, newError(KindInvalidAmount, "grossAmountWei must be a non-negative integer string")
	}
	gross, err := model.ParseWei(report.GrossAmountWei)
	if err != nil {
		return nil, newError(KindInvalidAmount, "grossAmountWei must be a non-negative integer string")
	}

	existing, err := s.ledger.FindSwap(ctx, txHash)
	if err != nil {
		logger.Error("lookup swap %s failed: %v", txHash, err)
		return nil, storageError(err)
	}
	if existing != nil {
		return resultFromLog(existing, true), nil
	}

	if s.verifier != nil {
		if err := s.verifier.VerifySwap(ctx, txHash, user); err != nil {
			if errors.Is(err, chain.ErrUnverified) {
				return nil, &Error{Kind: KindUnverifiedSwap, Message: "swap transaction could not be verified on chain", Err: err}
			}
			logger.Error("verify swap %s failed: %v", txHash, err)
			return nil, &Error{Kind: KindChainUnavailable, Message: "chain rpc unavailable, please retry", Err: err}
		}
	}

	binding, err := s.bindings.FindByUser(ctx, user)
	if err != nil {
		logger.Error("lookup referrer for %s failed: %v", user, err)
		return nil, storageError(err)
	}

	split := s.fees.Split(gross, binding != nil)
	entry := &model.SwapLog{
		TxHash:         txHash,
		UserAddress:    user,
		GrossAmountWei: gross,
		PlatformFeeWei: split.PlatformFee,
		PlatformCutWei: split.PlatformCut,
		ReferrerCutWei: split.ReferrerCut,
	}
	if binding != nil {
		ref := binding.ReferrerAddress
		entry.ReferrerAddress = &ref
	}

	credited, err := s.ledger.CreditEarnings(ctx, entry)
	if err != nil {
		logger.With(zap.String("txHash", txHash), zap.String("user", user)).Error("credit earnings failed", zap.Error(err))
		return nil, storageError(err)
	}
	if !credited {
		// lost a race with a concurrent report of the same tx
		stored, err := s.ledger.FindSwap(ctx, txHash)
		if err != nil || stored == nil {
			return resultFromLog(entry, true), nil
		}
		return resultFromLog(stored, true), nil
	}

	logger.With(zap.String("txHash", txHash), zap.String("referrerCut", split.ReferrerCut.String())).Info("swap tracked")
	return resultFromLog(entry, false), nil
}

func resultFromLog(e *model.SwapLog, duplicate bool) *SwapResult {
	r := &SwapResult{
		TxHash:      e.TxHash,
		PlatformFee: e.PlatformFeeWei,
		ReferrerCut: e.ReferrerCutWei,
		PlatformCut: e.PlatformCutWei,
		Duplicate:   duplicate,
	}
	if e.ReferrerAddress != nil {
		r.ReferrerAddress = *e.ReferrerAddress
	}
	return r
}
