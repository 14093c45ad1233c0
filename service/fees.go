package service

import (
	"math/big"

	"github.com/plasmx/referral-ledger/model"
)

const bpsDenominator = 10000

// FeePolicy 平台手续费率与推荐人分成，单位 bps
type FeePolicy struct {
	FeeBps           int64
	ReferrerShareBps int64
}

type FeeSplit struct {
	PlatformFee model.Wei
	ReferrerCut model.Wei
	PlatformCut model.Wei
}

// Split floors every division, so ReferrerCut+PlatformCut == PlatformFee and any
// rounding remainder stays with the platform.
func (p FeePolicy) Split(gross model.Wei, hasReferrer bool) FeeSplit {
	den := big.NewInt(bpsDenominator)

	fee := new(big.Int).Mul(gross.Big(), big.NewInt(p.FeeBps))
	fee.Quo(fee, den)

	cut := new(big.Int)
	if hasReferrer {
		cut.Mul(fee, big.NewInt(p.ReferrerShareBps))
		cut.Quo(cut, den)
	}

	return FeeSplit{
		PlatformFee: model.NewWei(fee),
		ReferrerCut: model.NewWei(cut),
		PlatformCut: model.NewWei(new(big.Int).Sub(fee, cut)),
	}
}
