package service

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the zero-address sentinel for the chain's native asset.
const NativeToken = "0x0000000000000000000000000000000000000000"

var (
	txHashPattern      = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	amountPattern      = regexp.MustCompile(`^[0-9]+$`)
	referralCodeFormat = regexp.MustCompile(`^[A-Za-z0-9]{3,20}$`)
)

// NormalizeAddress returns the lowercase 0x form of a 20-byte hex address.
func NormalizeAddress(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", false
	}
	if !common.IsHexAddress(s) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), true
}

func IsNativeToken(addr string) bool {
	return strings.EqualFold(addr, NativeToken)
}

func normalizeTxHash(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !txHashPattern.MatchString(s) {
		return "", false
	}
	return strings.ToLower(s), true
}

func normalizeCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !referralCodeFormat.MatchString(s) {
		return "", false
	}
	return strings.ToUpper(s), true
}
