package service

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/plasmx/referral-ledger/logger"
	"github.com/plasmx/referral-ledger/model"
)

// ReferralService 推荐关系绑定与推荐码管理
type ReferralService struct {
	bindings BindingStore
	codes    CodeStore
	accounts AccountReader
	clock    clockwork.Clock
}

func NewReferralService(bindings BindingStore, codes CodeStore, accounts AccountReader, clock clockwork.Clock) *ReferralService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReferralService{bindings: bindings, codes: codes, accounts: accounts, clock: clock}
}

// BindResult reports the binding now in effect. Bound=false means the user was
// already bound and Binding is the earlier, unchanged one.
type BindResult struct {
	Bound   bool
	Binding *model.ReferralBinding
}

func (s *ReferralService) BindByAddress(ctx context.Context, userAddress, referrerAddress string) (*BindResult, error) {
	user, ok := NormalizeAddress(userAddress)
	if !ok {
		return nil, newError(KindInvalidAddress, "invalid user address")
	}
	referrer, ok := NormalizeAddress(referrerAddress)
	if !ok {
		return nil, newError(KindInvalidAddress, "invalid referrer address")
	}
	return s.bind(ctx, user, referrer, nil)
}

func (s *ReferralService) BindByCode(ctx context.Context, userAddress, code string) (*BindResult, error) {
	user, ok := NormalizeAddress(userAddress)
	if !ok {
		return nil, newError(KindInvalidAddress, "invalid user address")
	}
	normalized, ok := normalizeCode(code)
	if !ok {
		return nil, newError(KindInvalidCode, "referral code not found")
	}
	owner, err := s.codes.FindByCode(ctx, normalized)
	if err != nil {
		logger.Error("lookup code %s failed: %v", normalized, err)
		return nil, storageError(err)
	}
	if owner == nil {
		return nil, newError(KindInvalidCode, "referral code not found")
	}
	return s.bind(ctx, user, owner.OwnerAddress, &normalized)
}

func (s *ReferralService) bind(ctx context.Context, user, referrer string, code *string) (*BindResult, error) {
	if user == referrer {
		return nil, newError(KindSelfReferral, "cannot refer yourself")
	}

	binding := &model.ReferralBinding{
		UserAddress:     user,
		ReferrerAddress: referrer,
		ReferralCode:    code,
		BoundAt:         s.clock.Now().UTC(),
	}
	bound, err := s.bindings.BindReferrer(ctx, binding)
	if err != nil {
		logger.Error("bind %s -> %s failed: %v", user, referrer, err)
		return nil, storageError(err)
	}
	if bound {
		logger.Info("bound %s to referrer %s", user, referrer)
		return &BindResult{Bound: true, Binding: binding}, nil
	}

	existing, err := s.bindings.FindByUser(ctx, user)
	if err != nil {
		return nil, storageError(err)
	}
	return &BindResult{Bound: false, Binding: existing}, nil
}

// GetBinding returns nil when the user has no referrer.
func (s *ReferralService) GetBinding(ctx context.Context, userAddress string) (*model.ReferralBinding, error) {
	user, ok := NormalizeAddress(userAddress)
	if !ok {
		return nil, newError(KindInvalidAddress, "invalid user address")
	}
	b, err := s.bindings.FindByUser(ctx, user)
	if err != nil {
		return nil, storageError(err)
	}
	return b, nil
}

// CreateCode registers a code for a wallet. Codes are stored upper-case, so
// "alice" collides with "ALICE". Repeating the same request is a success.
func (s *ReferralService) CreateCode(ctx context.Context, walletAddress, code string) (*model.ReferralCode, error) {
	wallet, ok := NormalizeAddress(walletAddress)
	if !ok {
		return nil, newError(KindInvalidAddress, "invalid wallet address")
	}
	normalized, ok := normalizeCode(code)
	if !ok {
		return nil, newError(KindInvalidCodeFormat, "referral code must be 3-20 letters or digits")
	}

	rc := &model.ReferralCode{Code: normalized, OwnerAddress: wallet, CreatedAt: s.clock.Now().UTC()}
	created, err := s.codes.Create(ctx, rc)
	if err != nil {
		logger.Error("create code %s failed: %v", normalized, err)
		return nil, storageError(err)
	}
	if created {
		return rc, nil
	}

	existing, err := s.codes.FindByCode(ctx, normalized)
	if err != nil {
		return nil, storageError(err)
	}
	switch {
	case existing != nil && existing.OwnerAddress == wallet:
		return existing, nil
	case existing != nil:
		return nil, newError(KindCodeTaken, "referral code already taken")
	default:
		return nil, newError(KindWalletHasCode, "wallet already has a referral code")
	}
}

func (s *ReferralService) ResolveCode(ctx context.Context, code string) (*model.ReferralCode, error) {
	normalized, ok := normalizeCode(code)
	if !ok {
		return nil, newError(KindInvalidCode, "referral code not found")
	}
	rc, err := s.codes.FindByCode(ctx, normalized)
	if err != nil {
		return nil, storageError(err)
	}
	if rc == nil {
		return nil, newError(KindInvalidCode, "referral code not found")
	}
	return rc, nil
}

type ReferralStats struct {
	WalletAddress  string    `json:"walletAddress"`
	ReferralCode   *string   `json:"referralCode"`
	TotalReferrals int64     `json:"totalReferrals"`
	TotalEarnings  model.Wei `json:"totalEarnings"`
	TotalClaimed   model.Wei `json:"totalClaimed"`
	Payable        model.Wei `json:"payable"`
	CurrentNonce   uint64    `json:"currentNonce"`
}

func (s *ReferralService) GetCodeAndStats(ctx context.Context, walletAddress string) (*ReferralStats, error) {
	wallet, ok := NormalizeAddress(walletAddress)
	if !ok {
		return nil, newError(KindInvalidAddress, "invalid wallet address")
	}

	rc, err := s.codes.FindByOwner(ctx, wallet)
	if err != nil {
		return nil, storageError(err)
	}
	count, err := s.bindings.CountByReferrer(ctx, wallet)
	if err != nil {
		return nil, storageError(err)
	}
	acc, err := s.accounts.FindAccount(ctx, wallet)
	if err != nil {
		return nil, storageError(err)
	}

	stats := &ReferralStats{
		WalletAddress:  wallet,
		TotalReferrals: count,
		TotalEarnings:  acc.TotalEarnedWei,
		TotalClaimed:   acc.TotalClaimedWei,
		Payable:        acc.Payable(),
		CurrentNonce:   acc.CurrentNonce,
	}
	if rc != nil {
		stats.ReferralCode = &rc.Code
	}
	return stats, nil
}
