package ledger

// ScoreType distinguishes the self-published score streams.
type ScoreType string

const (
	ScoreFinancialRisk  ScoreType = "FINANCIAL_RISK"
	ScoreUBIEligibility ScoreType = "UBI_ELIGIBILITY"
)

// IsValid reports whether t is a known score stream.
func (t ScoreType) IsValid() bool {
	return t == ScoreFinancialRisk || t == ScoreUBIEligibility
}

// MaxScoreValue is the inclusive upper bound of the score scale.
const MaxScoreValue = 1000
