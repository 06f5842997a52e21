package points

import "time"

// ReputationTotal is the running aggregate score for one holder. It only ever
// grows: burning the achievement records that earned it does not claw points
// back.
type ReputationTotal struct {
	Holder    string    `json:"holder" gorm:"primaryKey;size:42"`
	Total     int64     `json:"total" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ReputationTotal) TableName() string { return "reputation_totals" }

// LedgerConfig is the Point Ledger's single configuration row: the one-time
// registry binding and the owner-adjustable eligibility thresholds.
type LedgerConfig struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	RegistryAddress string    `json:"registry_address" gorm:"size:42"`
	MinPoints       int64     `json:"min_points" gorm:"not null;default:500"`
	MinScore        int64     `json:"min_score" gorm:"not null;default:700"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (LedgerConfig) TableName() string { return "point_ledger_config" }
