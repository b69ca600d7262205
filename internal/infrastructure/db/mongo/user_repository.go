package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository implements ports.UserRepository using MongoDB.
type UserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		col: db.Collection(collectionUsers),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type mongoUser struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	IsBanned  bool               `bson:"is_banned"`
	Address   string             `bson:"address,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// mongoProfile is the decode target for projected reads; it has no
// password field.
type mongoProfile struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Role      string             `bson:"role"`
	IsBanned  bool               `bson:"is_banned"`
	Address   string             `bson:"address,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:           mu.ID.Hex(),
		Name:         mu.Name,
		Email:        mu.Email,
		PasswordHash: mu.Password,
		Role:         domain.Role(mu.Role),
		IsBanned:     mu.IsBanned,
		Address:      mu.Address,
		CreatedAt:    mu.CreatedAt,
		UpdatedAt:    mu.UpdatedAt,
	}
}

func (mp *mongoProfile) toDomain() domain.UserProfile {
	p := domain.UserProfile{
		Name:      mp.Name,
		Email:     mp.Email,
		Role:      domain.Role(mp.Role),
		IsBanned:  mp.IsBanned,
		Address:   mp.Address,
		CreatedAt: mp.CreatedAt,
		UpdatedAt: mp.UpdatedAt,
	}
	if !mp.ID.IsZero() {
		p.ID = mp.ID.Hex()
	}
	return p
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// FindAll lists every user, oldest first, with the password projected out.
func (r *UserRepository) FindAll(ctx context.Context) ([]domain.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{}}},
		{{Key: "$project", Value: bson.D{{Key: "password", Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}}}},
	}

	profiles, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return profiles, nil
}

// GetProjectedByEmail returns a single user with password and _id projected out.
func (r *UserRepository) GetProjectedByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "email", Value: domain.NormalizeEmail(email)}}}},
		{{Key: "$project", Value: bson.D{{Key: "password", Value: 0}, {Key: "_id", Value: 0}}}},
		{{Key: "$limit", Value: 1}},
	}

	profiles, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("get user details: %w", err)
	}
	if len(profiles) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return &profiles[0], nil
}

func (r *UserRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]domain.UserProfile, error) {
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []mongoProfile
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	profiles := make([]domain.UserProfile, 0, len(docs))
	for i := range docs {
		profiles = append(profiles, docs[i].toDomain())
	}
	return profiles, nil
}

// Create normalizes and validates user, then inserts it. A collision on the
// unique email index yields *domain.DuplicateKeyError.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	doc := mongoUser{
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      u.Role.String(),
		IsBanned:  u.IsBanned,
		Address:   strings.TrimSpace(u.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &domain.DuplicateKeyError{Field: duplicateField(err)}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

// UpdateByEmail sets only the fields present in patch and returns the
// updated record.
func (r *UserRepository) UpdateByEmail(ctx context.Context, email string, patch domain.UserPatch) (*domain.User, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": r.now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.Role != nil {
		set["role"] = patch.Role.String()
	}
	if patch.IsBanned != nil {
		set["is_banned"] = *patch.IsBanned
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var mu mongoUser
	err := r.col.FindOneAndUpdate(ctx, bson.M{"email": domain.NormalizeEmail(email)}, bson.M{"$set": set}, opts).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}

// DeleteByEmail removes the user with email. Deleting an absent user is not
// an error: the record is gone either way.
func (r *UserRepository) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"email": domain.NormalizeEmail(email)}); err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return true, nil
}

// EnsureIndexes creates the unique email index the duplicate checks rely on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// duplicateField extracts the offending field from a duplicate-key message
// such as "E11000 ... index: email_unique dup key: { email: ... }".
func duplicateField(err error) string {
	msg := err.Error()
	i := strings.Index(msg, "index: ")
	if i < 0 {
		return "email"
	}
	rest := msg[i+len("index: "):]
	if j := strings.IndexAny(rest, "_ "); j > 0 {
		return rest[:j]
	}
	return "email"
}
