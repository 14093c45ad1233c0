package service

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jonboulle/clockwork"
	"github.com/plasmx/referral-ledger/logger"
	"github.com/plasmx/referral-ledger/model"
	"github.com/plasmx/referral-ledger/repository"
	"go.uber.org/zap"
)

const DefaultVoucherTTL = time.Hour

type VoucherOptions struct {
	VaultAddress   string
	ChainID        int64
	TTL            time.Duration
	TokenAllowlist []string
	Clock          clockwork.Clock
}

// VoucherService 领取凭证签名：校验 -> 预扣 payable -> 分配 nonce -> EIP-712 签名
type VoucherService struct {
	ledger    VoucherLedger
	signer    Signer
	vault     string
	chainID   int64
	ttl       time.Duration
	allowlist map[string]struct{}
	clock     clockwork.Clock
}

func NewVoucherService(ledger VoucherLedger, signer Signer, opts VoucherOptions) *VoucherService {
	s := &VoucherService{
		ledger:  ledger,
		signer:  signer,
		chainID: opts.ChainID,
		ttl:     opts.TTL,
		clock:   opts.Clock,
	}
	if addr, ok := NormalizeAddress(opts.VaultAddress); ok {
		s.vault = addr
	}
	if s.ttl <= 0 {
		s.ttl = DefaultVoucherTTL
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if len(opts.TokenAllowlist) > 0 {
		s.allowlist = make(map[string]struct{}, len(opts.TokenAllowlist))
		for _, t := range opts.TokenAllowlist {
			if addr, ok := NormalizeAddress(t); ok {
				s.allowlist[addr] = struct{}{}
			}
		}
	}
	return s
}

// ClaimRequest is the raw sign-voucher body; every field is validated here.
type ClaimRequest struct {
	Referrer string
	Token    string
	Amount   string
	Deadline *int64
}

func (s *VoucherService) configured() bool {
	return s.signer != nil && s.signer.Configured() && s.vault != "" && s.chainID > 0
}

// VaultInfo 金库配置信息（只暴露签名地址，不暴露私钥）
type VaultInfo struct {
	Configured    bool   `json:"configured"`
	VaultAddress  string `json:"vaultAddress,omitempty"`
	SignerAddress string `json:"signerAddress,omitempty"`
	ChainID       int64  `json:"chainId,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (s *VoucherService) VaultInfo() VaultInfo {
	if !s.configured() {
		return VaultInfo{Configured: false, Message: "Referral vault is not configured"}
	}
	return VaultInfo{
		Configured:    true,
		VaultAddress:  s.vault,
		SignerAddress: s.signer.Address().Hex(),
		ChainID:       s.chainID,
	}
}

// SignVoucher validates the request before touching the ledger. For the native
// token the claim is deducted before a nonce is allocated and before signing; a
// nonce is never reused, even when signing then fails.
func (s *VoucherService) SignVoucher(ctx context.Context, req ClaimRequest) (*Voucher, error) {
	if !s.configured() {
		return nil, newError(KindNotConfigured, "voucher signing is not configured")
	}

	referrer, ok := NormalizeAddress(req.Referrer)
	if !ok {
		return nil, newError(KindInvalidAddress, "invalid referrer address")
	}

	token := NativeToken
	if req.Token != "" {
		token, ok = NormalizeAddress(req.Token)
		if !ok {
			return nil, newError(KindInvalidAddress, "invalid token address")
		}
	}
	native := IsNativeToken(token)
	if !native && s.allowlist != nil {
		if _, allowed := s.allowlist[token]; !allowed {
			return nil, newError(KindUnsupportedToken, "token is not claimable from the vault")
		}
	}

	if !amountPattern.MatchString(req.Amount) {
		return nil, newError(KindInvalidAmount, "amount must be a positive integer string")
	}
	amount, err := model.ParseWei(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		return nil, newError(KindInvalidAmount, "amount must be a positive integer string")
	}

	now := s.clock.Now().Unix()
	deadline := now + int64(s.ttl/time.Second)
	if req.Deadline != nil {
		if *req.Deadline <= now {
			return nil, newError(KindInvalidDeadline, "deadline must be in the future")
		}
		deadline = *req.Deadline
	}

	log := logger.With(zap.String("referrer", referrer), zap.String("token", token), zap.String("amount", amount.String()))

	if native {
		if err := s.reserve(ctx, referrer, amount); err != nil {
			return nil, err
		}
	} else {
		log.Warn("signing voucher for non-native token without ledger balance check")
	}

	nonce, err := s.ledger.IncrementNonce(ctx, referrer)
	if err != nil {
		log.Error("allocate nonce failed", zap.Error(err))
		return nil, storageError(err)
	}

	v := Voucher{
		Nonce:    nonce,
		Deadline: deadline,
		Referrer: referrer,
		Token:    token,
		Amount:   amount,
	}
	sig, err := s.signer.SignTypedData(ctx, ClaimTypedData(s.chainID, s.vault, v))
	if err != nil {
		log.Error("sign voucher failed, nonce consumed", zap.Uint64("nonce", nonce), zap.Error(err))
		return nil, &Error{Kind: KindSigningFailure, Message: "failed to sign voucher", Err: err}
	}
	v.Signature = hexutil.Encode(sig)

	log.Info("voucher issued", zap.Uint64("nonce", nonce), zap.Int64("deadline", deadline))
	return &v, nil
}

// reserve checks payable and deducts it with the store's guarded increment.
func (s *VoucherService) reserve(ctx context.Context, referrer string, amount model.Wei) error {
	payable, err := s.ledger.GetPayable(ctx, referrer)
	if err != nil {
		logger.Error("load payable for %s failed: %v", referrer, err)
		return storageError(err)
	}
	if amount.Cmp(payable) > 0 {
		return insufficient(payable, amount)
	}

	err = s.ledger.RecordClaim(ctx, referrer, amount)
	if errors.Is(err, repository.ErrInsufficientPayable) {
		// a concurrent claim got there first
		if latest, rerr := s.ledger.GetPayable(ctx, referrer); rerr == nil {
			payable = latest
		}
		return insufficient(payable, amount)
	}
	if err != nil {
		logger.Error("record claim for %s failed: %v", referrer, err)
		return storageError(err)
	}
	return nil
}

func insufficient(payable, requested model.Wei) *Error {
	return &Error{
		Kind:      KindInsufficientBalance,
		Message:   "requested amount exceeds payable balance",
		Payable:   payable.String(),
		Requested: requested.String(),
	}
}
