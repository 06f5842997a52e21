package metadata

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Evidence is the free-form documentation behind an achievement record. The
// relational side stores only the hex reference; everything bulky lives here.
type Evidence struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Holder      string                 `bson:"holder" json:"holder"`
	Issuer      string                 `bson:"issuer" json:"issuer"`
	TaskType    string                 `bson:"taskType" json:"task_type"`
	Description string                 `bson:"description" json:"description"`
	Attachments []Attachment           `bson:"attachments" json:"attachments"`
	Details     map[string]interface{} `bson:"details" json:"details"`
	CreatedAt   time.Time              `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time              `bson:"updatedAt" json:"updated_at"`
}

type Attachment struct {
	Name        string    `bson:"name" json:"name"`
	ContentType string    `bson:"contentType" json:"content_type"`
	URL         string    `bson:"url" json:"url"`
	UploadedAt  time.Time `bson:"uploadedAt" json:"uploaded_at"`
}

// Store persists achievement evidence documents in MongoDB.
type Store struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// Connect dials MongoDB and returns the evidence database handle.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client.Database(dbName), nil
}

func NewStore(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{coll: db.Collection("evidence"), logger: logger}
}

// Put stores a new evidence document and returns its hex reference.
func (s *Store) Put(ctx context.Context, doc *Evidence) (string, error) {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	doc.ID = oid
	return oid.Hex(), nil
}

// Get resolves an evidence reference.
func (s *Store) Get(ctx context.Context, ref string) (*Evidence, error) {
	oid, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil, ledger.ErrNotFound
	}
	var doc Evidence
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Attach appends an attachment to an existing evidence document.
func (s *Store) Attach(ctx context.Context, ref string, attachment Attachment) error {
	oid, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return ledger.ErrNotFound
	}
	attachment.UploadedAt = time.Now().UTC()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"attachments": attachment},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// ListByHolder returns all evidence documents for a holder.
func (s *Store) ListByHolder(ctx context.Context, holder ledger.Address) ([]Evidence, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"holder": holder.String()})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Evidence
	for cursor.Next(ctx) {
		var doc Evidence
		if err := cursor.Decode(&doc); err != nil {
			s.logger.Warn("evidence decode failed", zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}
