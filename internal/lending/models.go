package lending

import "time"

// LoanStatus values mirror the pkg/workflows loan state machine.
type LoanStatus string

const (
	StatusNone      LoanStatus = "NONE"
	StatusApplied   LoanStatus = "APPLIED"
	StatusApproved  LoanStatus = "APPROVED"
	StatusRepaid    LoanStatus = "REPAID"
	StatusCancelled LoanStatus = "CANCELLED"
	StatusRejected  LoanStatus = "REJECTED"
)

// Loan is one borrower's active loan. A borrower has at most one non-terminal
// loan, so the borrower address is the key.
type Loan struct {
	Borrower          string     `json:"borrower" gorm:"primaryKey;size:42"`
	Principal         int64      `json:"principal" gorm:"not null"`
	InterestRateBps   int64      `json:"interest_rate_bps" gorm:"not null"`
	DurationDays      int64      `json:"duration_days"`
	AppliedAt         time.Time  `json:"applied_at" gorm:"not null"`
	DisbursedAt       *time.Time `json:"disbursed_at"`
	RepaymentDeadline *time.Time `json:"repayment_deadline"`
	IsApproved        bool       `json:"is_approved" gorm:"not null;default:false"`
	IsRepaid          bool       `json:"is_repaid" gorm:"not null;default:false"`

	// Audit snapshot taken at application time.
	ScoreAtApply  int64 `json:"score_at_apply"`
	PointsAtApply int64 `json:"points_at_apply"`
}

func (Loan) TableName() string { return "loans" }

// Status derives the lifecycle state from the stored flags.
func (l *Loan) Status() LoanStatus {
	switch {
	case l.IsRepaid:
		return StatusRepaid
	case l.IsApproved:
		return StatusApproved
	default:
		return StatusApplied
	}
}

// LendingConfig is the loan manager's single configuration row.
type LendingConfig struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	AdminAddress       string    `json:"admin_address" gorm:"size:42"`
	MinLoan            int64     `json:"min_loan" gorm:"not null;default:100"`
	MaxLoan            int64     `json:"max_loan" gorm:"not null;default:100000"`
	LargeLoanThreshold int64     `json:"large_loan_threshold" gorm:"not null;default:10000"`
	MinReputation      int64     `json:"min_reputation" gorm:"not null;default:500"`
	MinScore           int64     `json:"min_score" gorm:"not null;default:600"`
	Paused             bool      `json:"paused" gorm:"not null;default:false"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (LendingConfig) TableName() string { return "lending_config" }

// LoanQuote is the outcome of a loan simulation.
type LoanQuote struct {
	Principal       int64 `json:"principal"`
	DurationDays    int64 `json:"duration_days"`
	ReferenceScore  int64 `json:"reference_score"`
	InterestRateBps int64 `json:"interest_rate_bps"`
	TotalRepayment  int64 `json:"total_repayment"`
}
