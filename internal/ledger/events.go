package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is the analytics record every ledger operation emits. Events are
// append-only; the aggregation worker and the websocket feed both consume
// this table.
type Event struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	Ledger    string         `json:"ledger" gorm:"not null;index"`
	Type      string         `json:"type" gorm:"not null;index"`
	Actor     string         `json:"actor" gorm:"index"`
	Subject   string         `json:"subject" gorm:"index"`
	Payload   datatypes.JSON `json:"payload" gorm:"default:'{}'"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Recorder persists ledger events.
type Recorder interface {
	Record(ctx context.Context, ledgerName, eventType string, actor, subject Address, payload map[string]interface{}) error
}

// Broadcaster fans a recorded event out to live subscribers.
type Broadcaster interface {
	Broadcast(event Event)
}

type gormRecorder struct {
	db        *gorm.DB
	logger    *zap.Logger
	broadcast Broadcaster
}

// NewRecorder creates a Recorder backed by the events table. broadcast may be
// nil when no live feed is attached.
func NewRecorder(db *gorm.DB, logger *zap.Logger, broadcast Broadcaster) Recorder {
	return &gormRecorder{db: db, logger: logger, broadcast: broadcast}
}

func (r *gormRecorder) Record(ctx context.Context, ledgerName, eventType string, actor, subject Address, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := Event{
		Ledger:  ledgerName,
		Type:    eventType,
		Actor:   actor.String(),
		Subject: subject.String(),
		Payload: datatypes.JSON(raw),
	}

	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return err
	}

	r.logger.Info("ledger event",
		zap.String("ledger", ledgerName),
		zap.String("type", eventType),
		zap.String("actor", actor.String()),
		zap.String("subject", subject.String()))

	if r.broadcast != nil {
		r.broadcast.Broadcast(event)
	}
	return nil
}
