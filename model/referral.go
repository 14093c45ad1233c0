package model

import (
	"time"

	"gorm.io/gorm"
)

// 推荐人账户表（referral_earnings）：累计收益、累计已领取、签名 nonce
type ReferrerAccount struct {
	Address         string    `gorm:"primaryKey;column:address;type:varchar(42)" json:"address"`
	TotalEarnedWei  Wei       `gorm:"column:total_earned_wei;type:numeric(78,0);not null;default:0" json:"totalEarnedWei"`
	TotalClaimedWei Wei       `gorm:"column:total_claimed_wei;type:numeric(78,0);not null;default:0" json:"totalClaimedWei"`
	CurrentNonce    uint64    `gorm:"column:current_nonce;not null;default:0" json:"currentNonce"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (ReferrerAccount) TableName() string { return "referral_earnings" }

// Payable is earned minus claimed, never negative.
func (a ReferrerAccount) Payable() Wei {
	return a.TotalEarnedWei.Sub(a.TotalClaimedWei)
}

// 推荐绑定表（referrer_bindings）：一个用户只能绑定一次
type ReferralBinding struct {
	UserAddress     string    `gorm:"primaryKey;column:user_address;type:varchar(42)" json:"userAddress"`
	ReferrerAddress string    `gorm:"column:referrer_address;type:varchar(42);not null;index" json:"referrerAddress"`
	ReferralCode    *string   `gorm:"column:referral_code;type:varchar(20)" json:"referralCode,omitempty"`
	BoundAt         time.Time `gorm:"column:bound_at;not null" json:"boundAt"`
}

func (ReferralBinding) TableName() string { return "referrer_bindings" }

// 推荐码表（referral_codes）：code 统一大写存储，全局唯一
type ReferralCode struct {
	Code         string    `gorm:"primaryKey;column:code;type:varchar(20)" json:"referralCode"`
	OwnerAddress string    `gorm:"column:owner_address;type:varchar(42);not null;uniqueIndex" json:"ownerAddress"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (ReferralCode) TableName() string { return "referral_codes" }

// 交易日志表（swap_logs）：tx_hash 主键保证重复上报不会重复记账
type SwapLog struct {
	TxHash          string    `gorm:"primaryKey;column:tx_hash;type:varchar(66)" json:"txHash"`
	UserAddress     string    `gorm:"column:user_address;type:varchar(42);not null;index" json:"userAddress"`
	ReferrerAddress *string   `gorm:"column:referrer_address;type:varchar(42);index" json:"referrerAddress,omitempty"`
	GrossAmountWei  Wei       `gorm:"column:gross_amount_wei;type:numeric(78,0);not null" json:"grossAmountWei"`
	PlatformFeeWei  Wei       `gorm:"column:platform_fee_wei;type:numeric(78,0);not null" json:"platformFeeWei"`
	PlatformCutWei  Wei       `gorm:"column:platform_cut_wei;type:numeric(78,0);not null" json:"platformCutWei"`
	ReferrerCutWei  Wei       `gorm:"column:referrer_cut_wei;type:numeric(78,0);not null" json:"referrerCutWei"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (SwapLog) TableName() string { return "swap_logs" }

// helper: create tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ReferrerAccount{}, &ReferralBinding{}, &ReferralCode{}, &SwapLog{})
}
