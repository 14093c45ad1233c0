package repository

import (
	"context"
	"errors"
	"time"

	"github.com/plasmx/referral-ledger/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// All arithmetic happens inside single statements; amounts are bound as decimal
// strings and cast so postgres numeric and sqlite NUMERIC affinity agree.
const (
	ensureAccountSQL = `INSERT INTO referral_earnings (address, total_earned_wei, total_claimed_wei, current_nonce, created_at, updated_at)
VALUES (?, 0, 0, 0, ?, ?)
ON CONFLICT (address) DO NOTHING`

	incrementNonceSQL = `INSERT INTO referral_earnings (address, total_earned_wei, total_claimed_wei, current_nonce, created_at, updated_at)
VALUES (?, 0, 0, 1, ?, ?)
ON CONFLICT (address) DO UPDATE SET current_nonce = referral_earnings.current_nonce + 1, updated_at = excluded.updated_at
RETURNING current_nonce`

	creditEarningsSQL = `INSERT INTO referral_earnings (address, total_earned_wei, total_claimed_wei, current_nonce, created_at, updated_at)
VALUES (?, CAST(? AS NUMERIC), 0, 0, ?, ?)
ON CONFLICT (address) DO UPDATE SET total_earned_wei = referral_earnings.total_earned_wei + excluded.total_earned_wei, updated_at = excluded.updated_at`

	recordClaimSQL = `UPDATE referral_earnings
SET total_claimed_wei = total_claimed_wei + CAST(? AS NUMERIC), updated_at = ?
WHERE address = ? AND total_earned_wei - total_claimed_wei >= CAST(? AS NUMERIC)`
)

// LedgerRepository 推荐收益账本：累计收益/已领取/nonce，以及按 tx hash 幂等的交易日志
type LedgerRepository struct {
	store
}

func NewLedgerRepository(db *gorm.DB, timeout time.Duration) *LedgerRepository {
	return &LedgerRepository{store: newStore(db, timeout)}
}

// GetOrCreateAccount returns the account row, inserting a zeroed one first if needed.
func (r *LedgerRepository) GetOrCreateAccount(ctx context.Context, address string) (*model.ReferrerAccount, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	now := time.Now().UTC()
	if err := db.Exec(ensureAccountSQL, address, now, now).Error; err != nil {
		return nil, unavailable("ensure account", err)
	}
	var acc model.ReferrerAccount
	if err := db.Where("address = ?", address).First(&acc).Error; err != nil {
		return nil, unavailable("load account", err)
	}
	return &acc, nil
}

// FindAccount is a read-only lookup; an unknown address yields a zero account that is not persisted.
func (r *LedgerRepository) FindAccount(ctx context.Context, address string) (*model.ReferrerAccount, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var acc model.ReferrerAccount
	err := db.Where("address = ?", address).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.ReferrerAccount{Address: address}, nil
	}
	if err != nil {
		return nil, unavailable("find account", err)
	}
	return &acc, nil
}

// IncrementNonce atomically bumps and returns the new nonce. The first call for an address returns 1.
func (r *LedgerRepository) IncrementNonce(ctx context.Context, address string) (uint64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	now := time.Now().UTC()
	var nonce uint64
	if err := db.Raw(incrementNonceSQL, address, now, now).Scan(&nonce).Error; err != nil {
		return 0, unavailable("increment nonce", err)
	}
	return nonce, nil
}

// CreditEarnings inserts the swap log and credits the referrer cut in one transaction.
// A tx hash that is already logged is a no-op and reports credited=false.
func (r *LedgerRepository) CreditEarnings(ctx context.Context, entry *model.SwapLog) (bool, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	inserted := false
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}},
			DoNothing: true,
		}).Create(entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true

		if entry.ReferrerAddress == nil || entry.ReferrerCutWei.Sign() == 0 {
			return nil
		}
		now := time.Now().UTC()
		return tx.Exec(creditEarningsSQL, *entry.ReferrerAddress, entry.ReferrerCutWei.String(), now, now).Error
	})
	if err != nil {
		return false, unavailable("credit earnings", err)
	}
	return inserted, nil
}

// RecordClaim adds amount to the claimed total in a single guarded statement.
// It returns ErrInsufficientPayable when earned-claimed < amount at execution time,
// so concurrent claims can never overdraw.
func (r *LedgerRepository) RecordClaim(ctx context.Context, address string, amount model.Wei) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Exec(recordClaimSQL, amount.String(), time.Now().UTC(), address, amount.String())
	if res.Error != nil {
		return unavailable("record claim", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientPayable
	}
	return nil
}

// GetPayable returns earned - claimed, clamped at zero.
func (r *LedgerRepository) GetPayable(ctx context.Context, address string) (model.Wei, error) {
	acc, err := r.FindAccount(ctx, address)
	if err != nil {
		return model.Wei{}, err
	}
	return acc.Payable(), nil
}

// FindSwap returns nil when the tx hash has never been reported.
func (r *LedgerRepository) FindSwap(ctx context.Context, txHash string) (*model.SwapLog, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var entry model.SwapLog
	err := db.Where("tx_hash = ?", txHash).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find swap", err)
	}
	return &entry, nil
}
