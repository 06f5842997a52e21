package token

import "time"

// Balance is one account's stablecoin holding, in whole token units.
type Balance struct {
	Address   string    `json:"address" gorm:"primaryKey;size:42"`
	Amount    int64     `json:"amount" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Balance) TableName() string { return "token_balances" }

// Allowance lets a spender pull-transfer up to Amount from Owner.
type Allowance struct {
	Owner     string    `json:"owner" gorm:"primaryKey;size:42"`
	Spender   string    `json:"spender" gorm:"primaryKey;size:42"`
	Amount    int64     `json:"amount" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Allowance) TableName() string { return "token_allowances" }
