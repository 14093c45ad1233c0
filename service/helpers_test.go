package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/plasmx/referral-ledger/config"
	"github.com/plasmx/referral-ledger/database"
	"github.com/plasmx/referral-ledger/model"
	"github.com/plasmx/referral-ledger/repository"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	carol = "0x3333333333333333333333333333333333333333"
	vault = "0x9999999999999999999999999999999999999999"

	testChainID = 592
	// well-known hardhat account #0
	testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

type stores struct {
	ledger   *repository.LedgerRepository
	bindings *repository.BindingRepository
	codes    *repository.CodeRepository
}

func newStores(t *testing.T) stores {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return stores{
		ledger:   repository.NewLedgerRepository(db, time.Second),
		bindings: repository.NewBindingRepository(db, time.Second),
		codes:    repository.NewCodeRepository(db, time.Second),
	}
}

func txHash(c string) string {
	return "0x" + strings.Repeat(c, 64)
}

func testSigner(t *testing.T) *SignerService {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	s, err := NewSignerService("", "", key)
	require.NoError(t, err)
	return s
}

// failingSigner is configured but every signature attempt fails.
type failingSigner struct{}

func (failingSigner) Configured() bool        { return true }
func (failingSigner) Address() common.Address { return common.HexToAddress(vault) }
func (failingSigner) SignTypedData(context.Context, apitypes.TypedData) ([]byte, error) {
	return nil, errors.New("hsm offline")
}

type stubVerifier struct{ err error }

func (s stubVerifier) VerifySwap(context.Context, string, string) error { return s.err }

func weiOf(t *testing.T, s string) model.Wei {
	t.Helper()
	w, err := model.ParseWei(s)
	require.NoError(t, err)
	return w
}
