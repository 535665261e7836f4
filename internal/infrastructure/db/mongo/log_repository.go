package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

const logSequence = "logs"

type mongoLogEntry struct {
	Seq       int64     `bson:"seq"`
	Username  string    `bson:"username,omitempty"`
	Action    string    `bson:"action"`
	Timestamp time.Time `bson:"timestamp"`
}

// nextSeq hands out monotonically increasing log IDs from the counters
// collection.
func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": logSequence},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

// Insert persists an audit entry and sets its sequence ID.
func (s *Store) Insert(ctx context.Context, entry *domain.LogEntry) error {
	seq, err := s.nextSeq(ctx)
	if err != nil {
		return fmt.Errorf("insert log: next id: %w", err)
	}

	doc := mongoLogEntry{
		Seq:       seq,
		Username:  entry.Username,
		Action:    entry.Action,
		Timestamp: entry.Timestamp.UTC(),
	}
	if _, err := s.logs.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	entry.ID = seq
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	if limit <= 0 {
		return []*domain.LogEntry{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.logs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	var docs []mongoLogEntry
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}

	out := make([]*domain.LogEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.LogEntry{
			ID:        d.Seq,
			Username:  d.Username,
			Action:    d.Action,
			Timestamp: d.Timestamp.UTC(),
		})
	}
	return out, nil
}
