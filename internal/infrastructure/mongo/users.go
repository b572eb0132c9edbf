package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-signup-verify/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	fieldID               = "_id"
	fieldUsername         = "username"
	fieldEmail            = "email"
	fieldIsVerified       = "is_verified"
	fieldVerificationCode = "verification_code"
	fieldVerificationExp  = "verification_code_expires_at"
	fieldUpdatedAt        = "updated_at"
)

// userDocument is the persisted shape of domain.User.
type userDocument struct {
	ID                        string     `bson:"_id"`
	Username                  string     `bson:"username"`
	Email                     string     `bson:"email"`
	PasswordHash              string     `bson:"password_hash"`
	VerificationCode          *string    `bson:"verification_code,omitempty"`
	VerificationCodeExpiresAt *time.Time `bson:"verification_code_expires_at,omitempty"`
	IsVerified                bool       `bson:"is_verified"`
	CreatedAt                 time.Time  `bson:"created_at"`
	UpdatedAt                 time.Time  `bson:"updated_at"`
}

func toDocument(u *domain.User) userDocument {
	return userDocument{
		ID:                        u.UserID,
		Username:                  u.Username,
		Email:                     u.Email,
		PasswordHash:              u.PasswordHash,
		VerificationCode:          u.VerificationCode,
		VerificationCodeExpiresAt: u.VerificationCodeExpiry,
		IsVerified:                u.IsVerified,
		CreatedAt:                 u.CreatedAt,
		UpdatedAt:                 u.UpdatedAt,
	}
}

func (d userDocument) toDomain() *domain.User {
	u := &domain.User{
		UserID:                 d.ID,
		Username:               d.Username,
		Email:                  d.Email,
		PasswordHash:           d.PasswordHash,
		VerificationCode:       d.VerificationCode,
		VerificationCodeExpiry: d.VerificationCodeExpiresAt,
		IsVerified:             d.IsVerified,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
	}
	if u.VerificationCodeExpiry != nil {
		exp := u.VerificationCodeExpiry.UTC()
		u.VerificationCodeExpiry = &exp
	}
	return u
}

// UserRepo stores users in a single collection whose unique indexes on
// username and email make inserts atomic insert-if-absent operations.
type UserRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection(usersCollection), now: time.Now}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.coll.InsertOne(ctx, toDocument(u))
	return insertError(err)
}

// insertError maps a unique-index violation onto domain.ErrDuplicateUser.
func insertError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("username or email already registered: %w", domain.ErrDuplicateUser)
	}
	return fmt.Errorf("insert user: %w", err)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: fieldID, Value: userID}})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: fieldEmail, Value: email}})
}

func (r *UserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: fieldEmail, Value: email}},
		bson.D{{Key: fieldUsername, Value: username}},
	}}})
}

func (r *UserRepo) SetVerificationCode(ctx context.Context, userID, code string, expiry time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: fieldID, Value: userID}}, setCodeUpdate(code, expiry, r.now()))
	if err != nil {
		return fmt.Errorf("set verification code: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func setCodeUpdate(code string, expiry, now time.Time) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: fieldVerificationCode, Value: code},
		{Key: fieldVerificationExp, Value: expiry.UTC()},
		{Key: fieldUpdatedAt, Value: now.UTC()},
	}}}
}

// MarkVerified transitions a pending user holding code to verified and clears
// the code. The filter makes the transition happen at most once and only for
// the code that was checked.
func (r *UserRepo) MarkVerified(ctx context.Context, userID, code string) error {
	res, err := r.coll.UpdateOne(ctx, markVerifiedFilter(userID, code), markVerifiedUpdate(r.now()))
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	current, err := r.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return domain.VerifyConflict(userID, current)
}

func markVerifiedFilter(userID, code string) bson.D {
	return bson.D{
		{Key: fieldID, Value: userID},
		{Key: fieldIsVerified, Value: false},
		{Key: fieldVerificationCode, Value: code},
	}
}

func markVerifiedUpdate(now time.Time) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: fieldIsVerified, Value: true},
			{Key: fieldUpdatedAt, Value: now.UTC()},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: fieldVerificationCode, Value: ""},
			{Key: fieldVerificationExp, Value: ""},
		}},
	}
}

func (r *UserRepo) Delete(ctx context.Context, u *domain.User) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: fieldID, Value: u.UserID}}); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Ping checks that the deployment is reachable.
func (r *UserRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.D) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}
