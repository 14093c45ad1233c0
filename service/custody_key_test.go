package service

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestLoadCustodyKeyFromHex(t *testing.T) {
	key, err := LoadCustodyKey("0x"+testKeyHex, "", "")
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func TestLoadCustodyKeyFromMnemonic(t *testing.T) {
	key, err := LoadCustodyKey("", testMnemonic, "")
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func TestLoadCustodyKeyHexWins(t *testing.T) {
	key, err := LoadCustodyKey(testKeyHex, testMnemonic, DefaultDerivationPath)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func TestLoadCustodyKeyUnset(t *testing.T) {
	key, err := LoadCustodyKey("", "  ", "")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoadCustodyKeyErrorsDoNotLeak(t *testing.T) {
	secret := "deadbeefnotakey"
	_, err := LoadCustodyKey(secret, "", "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), secret)

	_, err = LoadCustodyKey("", "abandon abandon abandon", "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "abandon")

	_, err = LoadCustodyKey("", testMnemonic, "m/not/a/path")
	assert.Error(t, err)
}
