package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-portal/internal/core/domain"
)

type mongoUser struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Username            string             `bson:"username"`
	Email               string             `bson:"email"`
	PasswordHash        string             `bson:"password_hash"`
	Role                string             `bson:"role"`
	TwoFactorCode       string             `bson:"two_factor_code,omitempty"`
	TwoFactorExpiration *time.Time         `bson:"two_factor_expiration,omitempty"`
	CreatedAt           time.Time          `bson:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	doc := mongoUser{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         domain.NormalizeRole(u.Role),
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	if u.HasChallenge() {
		exp := u.TwoFactorExpiration.UTC()
		doc.TwoFactorCode = u.TwoFactorCode
		doc.TwoFactorExpiration = &exp
	}
	return doc
}

func (mu mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:           mu.ID.Hex(),
		Username:     mu.Username,
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Role:         domain.NormalizeRole(mu.Role),
		CreatedAt:    mu.CreatedAt.UTC(),
		UpdatedAt:    mu.UpdatedAt.UTC(),
	}
	if mu.TwoFactorCode != "" && mu.TwoFactorExpiration != nil {
		u.IssueChallenge(mu.TwoFactorCode, *mu.TwoFactorExpiration)
	}
	return u
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := s.users.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *Store) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	user.Role = domain.NormalizeRole(user.Role)

	res, err := s.users.InsertOne(ctx, toMongoUser(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	user.ID = oid.Hex()
	return nil
}

// SetTwoFactorChallenge sets only the challenge fields; the password hash
// is left to UpdatePassword.
func (s *Store) SetTwoFactorChallenge(ctx context.Context, userID, code string, expiresAt time.Time) error {
	return s.updateUser(ctx, userID, bson.M{
		"two_factor_code":       code,
		"two_factor_expiration": expiresAt.UTC(),
		"updated_at":            time.Now().UTC(),
	})
}

func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	return s.updateUser(ctx, userID, bson.M{
		"password_hash": passwordHash,
		"updated_at":    at.UTC(),
	})
}

func (s *Store) updateUser(ctx context.Context, userID string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*domain.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// ConsumeTwoFactorCode matches and clears the challenge in one UpdateOne so a
// concurrently replaced code never validates.
func (s *Store) ConsumeTwoFactorCode(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil || code == "" {
		return false, nil
	}

	filter := bson.M{
		"_id":                   oid,
		"two_factor_code":       code,
		"two_factor_expiration": bson.M{"$gt": now.UTC()},
	}
	update := bson.M{
		"$unset": bson.M{"two_factor_code": "", "two_factor_expiration": ""},
		"$set":   bson.M{"updated_at": now.UTC()},
	}
	res, err := s.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("consume 2fa code: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
