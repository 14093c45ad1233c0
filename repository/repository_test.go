package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/plasmx/referral-ledger/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	carol = "0x3333333333333333333333333333333333333333"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.AutoMigrate(db))
	return db
}

func swapLog(tx, user string, referrer *string, cut int64) *model.SwapLog {
	return &model.SwapLog{
		TxHash:          tx,
		UserAddress:     user,
		ReferrerAddress: referrer,
		GrossAmountWei:  model.WeiFromInt64(cut * 50),
		PlatformFeeWei:  model.WeiFromInt64(cut * 10 / 3),
		ReferrerCutWei:  model.WeiFromInt64(cut),
		PlatformCutWei:  model.WeiFromInt64(cut*10/3 - cut),
	}
}

func TestIncrementNonce(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t), time.Second)

	n, err := repo.IncrementNonce(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	n, err = repo.IncrementNonce(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	// independent per referrer
	n, err = repo.IncrementNonce(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestIncrementNonceConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t), 5*time.Second)

	const workers = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		nonces = make(map[uint64]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.IncrementNonce(ctx, alice)
			assert.NoError(t, err)
			mu.Lock()
			nonces[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, nonces, workers, "every call gets a distinct nonce")
	for i := uint64(1); i <= workers; i++ {
		assert.True(t, nonces[i], "nonce %d missing", i)
	}
}

func TestGetOrCreateAccount(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t), time.Second)

	acc, err := repo.GetOrCreateAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, acc.Address)
	assert.Equal(t, "0", acc.TotalEarnedWei.String())
	assert.Equal(t, uint64(0), acc.CurrentNonce)

	_, err = repo.IncrementNonce(ctx, alice)
	require.NoError(t, err)
	acc, err = repo.GetOrCreateAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), acc.CurrentNonce, "existing row is returned untouched")
}

func TestFindAccountUnknownIsZero(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewLedgerRepository(db, time.Second)

	acc, err := repo.FindAccount(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, carol, acc.Address)
	assert.Equal(t, "0", acc.Payable().String())

	var count int64
	require.NoError(t, db.Model(&model.ReferrerAccount{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreditEarningsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t), time.Second)
	ref := alice

	credited, err := repo.CreditEarnings(ctx, swapLog("0xaa", bob, &ref, 600))
	require.NoError(t, err)
	assert.True(t, credited)

	credited, err = repo.CreditEarnings(ctx, swapLog("0xaa", bob, &ref, 600))
	require.NoError(t, err)
	assert.False(t, credited, "same tx hash is never credited twice")

	credited, err = repo.CreditEarnings(ctx, swapLog("0xbb", bob, &ref, 200))
	require.NoError(t, err)
	assert.True(t, credited)

	payable, err := repo.GetPayable(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "800", payable.String())

	entry, err := repo.FindSwap(ctx, "0xaa")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "600", entry.ReferrerCutWei.String())
	require.NotNil(t, entry.ReferrerAddress)
	assert.Equal(t, alice, *entry.ReferrerAddress)

	missing, err := repo.FindSwap(ctx, "0xcc")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreditEarningsWithoutReferrer(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewLedgerRepository(db, time.Second)

	credited, err := repo.CreditEarnings(ctx, swapLog("0xaa", bob, nil, 0))
	require.NoError(t, err)
	assert.True(t, credited, "the swap is still logged")

	var count int64
	require.NoError(t, db.Model(&model.ReferrerAccount{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreditEarningsLargeAmounts(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t), time.Second)
	ref := alice

	cut, err := model.ParseWei("3000000000000000000")
	require.NoError(t, err)
	for _, tx := range []string{"0xaa", "0xbb"} {
		entry := swapLog(tx, bob, &ref, 0)
		entry.ReferrerCutWei = cut
		_, err := repo.CreditEarnings(ctx, entry)
		require.NoError(t, err)
	}

	payable, err := repo.GetPayable(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "6000000000000000000", payable.String())
}

func TestRecordClaimGuarded(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t), time.Second)
	ref := alice

	_, err := repo.CreditEarnings(ctx, swapLog("0xaa", bob, &ref, 800))
	require.NoError(t, err)

	err = repo.RecordClaim(ctx, alice, model.WeiFromInt64(801))
	assert.ErrorIs(t, err, ErrInsufficientPayable)

	require.NoError(t, repo.RecordClaim(ctx, alice, model.WeiFromInt64(500)))
	require.NoError(t, repo.RecordClaim(ctx, alice, model.WeiFromInt64(300)))

	err = repo.RecordClaim(ctx, alice, model.WeiFromInt64(1))
	assert.ErrorIs(t, err, ErrInsufficientPayable)

	acc, err := repo.FindAccount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "800", acc.TotalEarnedWei.String())
	assert.Equal(t, "800", acc.TotalClaimedWei.String())
	assert.Equal(t, "0", acc.Payable().String())
}

func TestRecordClaimUnknownAccount(t *testing.T) {
	repo := NewLedgerRepository(newTestDB(t), time.Second)
	err := repo.RecordClaim(context.Background(), carol, model.WeiFromInt64(1))
	assert.ErrorIs(t, err, ErrInsufficientPayable)
}

func TestRecordClaimConcurrentNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(newTestDB(t), 5*time.Second)
	ref := alice

	_, err := repo.CreditEarnings(ctx, swapLog("0xaa", bob, &ref, 1000))
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.RecordClaim(ctx, alice, model.WeiFromInt64(300)); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	payable, err := repo.GetPayable(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "100", payable.String())
}

func TestBindReferrerFirstWins(t *testing.T) {
	ctx := context.Background()
	repo := NewBindingRepository(newTestDB(t), time.Second)

	bound, err := repo.BindReferrer(ctx, &model.ReferralBinding{UserAddress: bob, ReferrerAddress: alice, BoundAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, bound)

	bound, err = repo.BindReferrer(ctx, &model.ReferralBinding{UserAddress: bob, ReferrerAddress: carol, BoundAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, bound)

	b, err := repo.FindByUser(ctx, bob)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, alice, b.ReferrerAddress)

	none, err := repo.FindByUser(ctx, carol)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = repo.BindReferrer(ctx, &model.ReferralBinding{UserAddress: carol, ReferrerAddress: alice, BoundAt: time.Now()})
	require.NoError(t, err)
	n, err := repo.CountByReferrer(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCodeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCodeRepository(newTestDB(t), time.Second)

	created, err := repo.Create(ctx, &model.ReferralCode{Code: "ALICE", OwnerAddress: alice})
	require.NoError(t, err)
	assert.True(t, created)

	// same code, other owner
	created, err = repo.Create(ctx, &model.ReferralCode{Code: "ALICE", OwnerAddress: bob})
	require.NoError(t, err)
	assert.False(t, created)

	// same owner, other code
	created, err = repo.Create(ctx, &model.ReferralCode{Code: "ALICE2", OwnerAddress: alice})
	require.NoError(t, err)
	assert.False(t, created)

	rc, err := repo.FindByCode(ctx, "ALICE")
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.Equal(t, alice, rc.OwnerAddress)

	rc, err = repo.FindByOwner(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.Equal(t, "ALICE", rc.Code)

	rc, err = repo.FindByCode(ctx, "NOBODY")
	require.NoError(t, err)
	assert.Nil(t, rc)
}

func TestStoreUnavailable(t *testing.T) {
	db := newTestDB(t)
	repo := NewLedgerRepository(db, time.Second)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.IncrementNonce(context.Background(), alice)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	err = Ping(context.Background(), db, time.Second)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
