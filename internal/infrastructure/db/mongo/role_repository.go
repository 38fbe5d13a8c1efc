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

	"github.com/userportal/auth-service/internal/core/domain"
)

const (
	rolesCollection = "roles"

	// upsertAttempts bounds the retries after a duplicate-key conflict on the
	// unique name index.
	upsertAttempts = 3
)

type RoleRepository struct {
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{coll: db.Collection(rolesCollection)}
}

type mongoRole struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (mr mongoRole) toDomain() *domain.Role {
	return &domain.Role{ID: mr.ID.Hex(), Name: mr.Name, CreatedAt: mr.CreatedAt.UTC()}
}

// FindOrCreate upserts the role by name. Two concurrent upserts of a new name
// can both try to insert; the loser gets a duplicate-key error from the
// unique index and re-fetches the winner's document.
func (r *RoleRepository) FindOrCreate(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"name": name}
	update := bson.M{"$setOnInsert": bson.M{"name": name, "created_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var lastErr error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		var mr mongoRole
		err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mr)
		if err == nil {
			return mr.toDomain(), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("upsert role: %w", err)
		}
		lastErr = err

		if err := r.coll.FindOne(ctx, filter).Decode(&mr); err == nil {
			return mr.toDomain(), nil
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("refetch role: %w", err)
		}
	}
	return nil, fmt.Errorf("upsert role %q: %w", name, lastErr)
}

// EnsureIndexes creates the unique name index FindOrCreate depends on.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_name"),
	})
	return err
}
