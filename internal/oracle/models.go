package oracle

import (
	"time"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// VerifiedScore is the latest self-published score for one (holder, type)
// slot. Publishes overwrite it in place.
type VerifiedScore struct {
	Holder      string           `json:"holder" gorm:"primaryKey;size:42"`
	ScoreType   ledger.ScoreType `json:"score_type" gorm:"primaryKey;size:32"`
	Value       int64            `json:"value" gorm:"not null"`
	PublishedAt time.Time        `json:"published_at" gorm:"not null"`
}

func (VerifiedScore) TableName() string { return "verified_scores" }

// ScoreHistoryEntry is one row of the append-only publish log, kept only
// while history tracking is enabled.
type ScoreHistoryEntry struct {
	ID          uint64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Holder      string           `json:"holder" gorm:"size:42;not null;index"`
	ScoreType   ledger.ScoreType `json:"score_type" gorm:"size:32;not null;index"`
	Value       int64            `json:"value" gorm:"not null"`
	PublishedAt time.Time        `json:"published_at" gorm:"not null"`
}

func (ScoreHistoryEntry) TableName() string { return "score_history" }

// OracleConfig is the oracle's single configuration row.
type OracleConfig struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	MaxScoreAgeSecs    int64     `json:"max_score_age_secs" gorm:"not null;default:86400"`
	MinPublishGapSecs  int64     `json:"min_publish_gap_secs" gorm:"not null;default:3600"`
	PublishingPaused   bool      `json:"publishing_paused" gorm:"not null;default:false"`
	HistoryEnabled     bool      `json:"history_enabled" gorm:"not null;default:false"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (OracleConfig) TableName() string { return "oracle_config" }

// MaxScoreAge returns the staleness window as a duration.
func (c *OracleConfig) MaxScoreAge() time.Duration {
	return time.Duration(c.MaxScoreAgeSecs) * time.Second
}

// MinPublishInterval returns the anti-spam window as a duration.
func (c *OracleConfig) MinPublishInterval() time.Duration {
	return time.Duration(c.MinPublishGapSecs) * time.Second
}

// BatchScoreEntry is one holder's slot in a batch read. Holders with no score
// read as invalid and zero rather than failing the batch.
type BatchScoreEntry struct {
	Holder  string `json:"holder"`
	Value   int64  `json:"value"`
	Valid   bool   `json:"valid"`
	AgeSecs int64  `json:"age_secs"`
}
