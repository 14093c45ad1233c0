package repository

import (
	"context"
	"errors"
	"time"

	"github.com/plasmx/referral-ledger/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BindingRepository struct {
	store
}

func NewBindingRepository(db *gorm.DB, timeout time.Duration) *BindingRepository {
	return &BindingRepository{store: newStore(db, timeout)}
}

// BindReferrer inserts the binding only if the user has none; first bind wins.
// bound=false means the user was already bound and nothing changed.
func (r *BindingRepository) BindReferrer(ctx context.Context, binding *model.ReferralBinding) (bool, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_address"}},
		DoNothing: true,
	}).Create(binding)
	if res.Error != nil {
		return false, unavailable("bind referrer", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FindByUser returns nil when the user is not bound.
func (r *BindingRepository) FindByUser(ctx context.Context, userAddress string) (*model.ReferralBinding, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var b model.ReferralBinding
	err := db.Where("user_address = ?", userAddress).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find binding", err)
	}
	return &b, nil
}

func (r *BindingRepository) CountByReferrer(ctx context.Context, referrerAddress string) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var n int64
	if err := db.Model(&model.ReferralBinding{}).Where("referrer_address = ?", referrerAddress).Count(&n).Error; err != nil {
		return 0, unavailable("count referees", err)
	}
	return n, nil
}

type CodeRepository struct {
	store
}

func NewCodeRepository(db *gorm.DB, timeout time.Duration) *CodeRepository {
	return &CodeRepository{store: newStore(db, timeout)}
}

// Create is insert-if-absent against both the code and the owner unique keys.
// created=false means some row already holds the code or the owner.
func (r *CodeRepository) Create(ctx context.Context, code *model.ReferralCode) (bool, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(code)
	if res.Error != nil {
		return false, unavailable("create code", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FindByCode expects the code already upper-cased; nil when unknown.
func (r *CodeRepository) FindByCode(ctx context.Context, code string) (*model.ReferralCode, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var c model.ReferralCode
	err := db.Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find code", err)
	}
	return &c, nil
}

func (r *CodeRepository) FindByOwner(ctx context.Context, owner string) (*model.ReferralCode, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var c model.ReferralCode
	err := db.Where("owner_address = ?", owner).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find code by owner", err)
	}
	return &c, nil
}
