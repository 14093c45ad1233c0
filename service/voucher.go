package service

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/plasmx/referral-ledger/model"
)

const (
	VaultDomainName    = "ReferralVault"
	VaultDomainVersion = "1"
	claimPrimaryType   = "Claim"
)

var claimTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	claimPrimaryType: {
		{Name: "referrer", Type: "address"},
		{Name: "token", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// Voucher is a signed single-use claim authorization for the ReferralVault.
type Voucher struct {
	Signature string    `json:"signature"`
	Nonce     uint64    `json:"nonce"`
	Deadline  int64     `json:"deadline"`
	Referrer  string    `json:"referrer"`
	Token     string    `json:"token"`
	Amount    model.Wei `json:"amount"`
}

// ClaimTypedData builds the typed-data payload the vault's claim() verifies.
func ClaimTypedData(chainID int64, vault string, v Voucher) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       claimTypes,
		PrimaryType: claimPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              VaultDomainName,
			Version:           VaultDomainVersion,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: vault,
		},
		Message: apitypes.TypedDataMessage{
			"referrer": v.Referrer,
			"token":    v.Token,
			"amount":   v.Amount.Big(),
			"nonce":    new(big.Int).SetUint64(v.Nonce),
			"deadline": big.NewInt(v.Deadline),
		},
	}
}
