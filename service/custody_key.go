package service

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath BIP44 以太坊第一个地址
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// LoadCustodyKey 加载签名私钥：优先 hex 私钥，其次助记词派生；都没配置时返回 nil, nil
func LoadCustodyKey(privHex, mnemonic, path string) (*ecdsa.PrivateKey, error) {
	privHex = strings.TrimSpace(privHex)
	mnemonic = strings.TrimSpace(mnemonic)

	switch {
	case privHex != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
		if err != nil {
			// the parse error never echoes the key
			return nil, errors.New("invalid signer private key")
		}
		return key, nil
	case mnemonic != "":
		return deriveFromMnemonic(mnemonic, path)
	default:
		return nil, nil
	}
}

func deriveFromMnemonic(mnemonic, path string) (*ecdsa.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid signer mnemonic")
	}
	if path == "" {
		path = DefaultDerivationPath
	}
	indexes, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid derivation path %q: %w", path, err)
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}
	for _, idx := range indexes {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", path, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract private key: %w", err)
	}
	return priv.ToECDSA(), nil
}
