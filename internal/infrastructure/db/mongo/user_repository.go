package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/userportal/auth-service/internal/core/domain"
)

const usersCollection = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Email        string               `bson:"email"`
	PasswordHash string               `bson:"password_hash"`
	Name         string               `bson:"name"`
	LastName     string               `bson:"last_name"`
	PhoneNumber  string               `bson:"phone_number,omitempty"`
	Birthdate    *time.Time           `bson:"birthdate,omitempty"`
	ProfileURL   string               `bson:"profile_url,omitempty"`
	Address      string               `bson:"address,omitempty"`
	RoleIDs      []primitive.ObjectID `bson:"roles"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`

	// Populated by the $lookup stage only; never written.
	RoleDocs []mongoRole `bson:"role_docs,omitempty"`
}

// Create inserts a user. The unique index on email turns a concurrent
// duplicate into domain.ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	roleIDs, err := toObjectIDs(user.RoleIDs)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	doc := mongoUser{
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		LastName:     user.LastName,
		PhoneNumber:  user.PhoneNumber,
		ProfileURL:   user.ProfileURL,
		Address:      user.Address,
		RoleIDs:      roleIDs,
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}
	if !user.Birthdate.IsZero() {
		bd := user.Birthdate.UTC()
		doc.Birthdate = &bd
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"email": email})
}

// FindByID returns domain.ErrUserNotFound for unknown and malformed ids alike.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": oid})
}

// List returns all users ordered by creation.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	users, err := r.aggregate(ctx, bson.M{}, bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// EnsureIndexes creates the unique email index the sign-up flow relies on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	users, err := r.aggregate(ctx, filter, bson.D{{Key: "$limit", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if len(users) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return users[0], nil
}

// aggregate matches users and resolves their role references, the way
// populate would.
func (r *UserRepository) aggregate(ctx context.Context, filter bson.M, extra ...bson.D) ([]*domain.User, error) {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: filter}}}
	pipeline = append(pipeline, extra...)
	pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: rolesCollection},
		{Key: "localField", Value: "roles"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "role_docs"},
	}}})

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (mu *mongoUser) toDomain() *domain.User {
	names := make(map[primitive.ObjectID]string, len(mu.RoleDocs))
	for _, rd := range mu.RoleDocs {
		names[rd.ID] = rd.Name
	}

	u := &domain.User{
		ID:           mu.ID.Hex(),
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Name:         mu.Name,
		LastName:     mu.LastName,
		PhoneNumber:  mu.PhoneNumber,
		ProfileURL:   mu.ProfileURL,
		Address:      mu.Address,
		RoleIDs:      make([]string, 0, len(mu.RoleIDs)),
		Roles:        make([]string, 0, len(mu.RoleIDs)),
		CreatedAt:    mu.CreatedAt.UTC(),
		UpdatedAt:    mu.UpdatedAt.UTC(),
	}
	if mu.Birthdate != nil {
		u.Birthdate = mu.Birthdate.UTC()
	}
	// Keep the stored reference order; dangling references are skipped.
	for _, id := range mu.RoleIDs {
		u.RoleIDs = append(u.RoleIDs, id.Hex())
		if name, ok := names[id]; ok {
			u.Roles = append(u.Roles, name)
		}
	}
	return u
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("role id %q: %w", id, err)
		}
		out = append(out, oid)
	}
	return out, nil
}
