package benefits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Program is a benefit or scholarship pool with its own eligibility gates.
type Program struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Owner         string    `json:"owner" gorm:"size:42;not null;index"`
	Name          string    `json:"name" gorm:"not null"`
	Description   string    `json:"description"`
	MinPoints     int64     `json:"min_points" gorm:"not null"`
	MinScore      int64     `json:"min_score" gorm:"not null"`
	BenefitAmount int64     `json:"benefit_amount" gorm:"not null"`
	PoolBalance   int64     `json:"pool_balance" gorm:"not null;default:0"`
	Active        bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Program) TableName() string { return "benefit_programs" }

func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ApplicationStatus values mirror the pkg/workflows application machine.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "PENDING"
	ApplicationApproved  ApplicationStatus = "APPROVED"
	ApplicationRejected  ApplicationStatus = "REJECTED"
	ApplicationDisbursed ApplicationStatus = "DISBURSED"
	ApplicationCompleted ApplicationStatus = "COMPLETED"
)

// Application is one (program, applicant) pair moving through the benefit
// lifecycle. At most one reward mint happens per application.
type Application struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primary_key"`
	ProgramID     uuid.UUID         `json:"program_id" gorm:"type:uuid;not null;index"`
	Applicant     string            `json:"applicant" gorm:"size:42;not null;index"`
	Status        ApplicationStatus `json:"status" gorm:"not null;default:'PENDING';index"`
	PointsAtApply int64             `json:"points_at_apply"`
	ScoreAtApply  int64             `json:"score_at_apply"`
	RewardMinted  bool              `json:"reward_minted" gorm:"not null;default:false"`
	AppliedAt     time.Time         `json:"applied_at" gorm:"autoCreateTime"`
	DecidedAt     *time.Time        `json:"decided_at"`
	DisbursedAt   *time.Time        `json:"disbursed_at"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Application) TableName() string { return "benefit_applications" }

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
