package registry

import (
	"time"
)

// TaskType is the closed category of achievement being attested.
type TaskType string

const (
	// Identity
	TaskKYCVerified        TaskType = "kyc_verified"
	TaskCredentialVerified TaskType = "credential_verified"

	// Financial
	TaskLoanRepaid      TaskType = "loan_repaid"
	TaskLargeLoanRepaid TaskType = "large_loan_repaid"
	TaskSavingsGoal     TaskType = "savings_goal"
	TaskBillPayment     TaskType = "bill_payment"

	// Social
	TaskCommunityService TaskType = "community_service"
	TaskPeerEndorsement  TaskType = "peer_endorsement"
)

// IsValid reports whether t is one of the closed task categories.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskKYCVerified, TaskCredentialVerified,
		TaskLoanRepaid, TaskLargeLoanRepaid, TaskSavingsGoal, TaskBillPayment,
		TaskCommunityService, TaskPeerEndorsement:
		return true
	}
	return false
}

// PointLevel is one of four fixed reputation tiers.
type PointLevel string

const (
	LevelBronze   PointLevel = "bronze"
	LevelSilver   PointLevel = "silver"
	LevelGold     PointLevel = "gold"
	LevelPlatinum PointLevel = "platinum"
)

// pointValues maps each tier to its deterministic point value.
var pointValues = map[PointLevel]int64{
	LevelBronze:   100,
	LevelSilver:   300,
	LevelGold:     750,
	LevelPlatinum: 1500,
}

// PointValue returns the points a tier is worth, false for unknown tiers.
func (l PointLevel) PointValue() (int64, bool) {
	v, ok := pointValues[l]
	return v, ok
}

// AchievementRecord is one issued, non-transferable achievement. Immutable
// once created except for deletion via burn.
type AchievementRecord struct {
	ID          uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Holder      string     `json:"holder" gorm:"size:42;not null;index"`
	TaskType    TaskType   `json:"task_type" gorm:"not null;index"`
	PointLevel  PointLevel `json:"point_level" gorm:"not null"`
	Title       string     `json:"title" gorm:"not null"`
	Issuer      string     `json:"issuer" gorm:"size:42;not null"`
	MetadataRef string     `json:"metadata_ref"`
	IssuedAt    time.Time  `json:"issued_at" gorm:"not null"`
}

func (AchievementRecord) TableName() string { return "achievement_records" }

// AuthorizedIssuer is a member of the admin-managed issuer set.
type AuthorizedIssuer struct {
	Address string    `json:"address" gorm:"primaryKey;size:42"`
	AddedBy string    `json:"added_by" gorm:"size:42"`
	AddedAt time.Time `json:"added_at" gorm:"autoCreateTime"`
}

func (AuthorizedIssuer) TableName() string { return "authorized_issuers" }
