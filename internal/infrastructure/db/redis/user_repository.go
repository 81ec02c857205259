package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/deathkiller/api/internal/core/domain"
	"github.com/deathkiller/api/internal/core/ports"
)

// Key layout:
//
//	user:<id>            hash with the user record and its password hash
//	user:email:<email>   id of the user owning email, claimed with SETNX
type UserRepository struct {
	client *redis.Client
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(client *redis.Client) *UserRepository {
	return &UserRepository{client: client}
}

type redisUser struct {
	ID        string `redis:"id"`
	Email     string `redis:"email"`
	Username  string `redis:"username"`
	Role      string `redis:"role"`
	CreatedAt int64  `redis:"created_at"`
	UpdatedAt int64  `redis:"updated_at"`
}

var publicFields = []string{"id", "email", "username", "role", "created_at", "updated_at"}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, err := r.idForEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var ru redisUser
	if err := r.client.HMGet(ctx, userKey(id), publicFields...).Scan(&ru); err != nil {
		return nil, fmt.Errorf("redis: read user: %w", err)
	}
	// A claimed email whose hash is not written yet reads as absent.
	if ru.ID == "" {
		return nil, domain.ErrUserNotFound
	}
	return ru.toDomain(), nil
}

func (r *UserRepository) FindCredentialByEmail(ctx context.Context, email string) (*domain.UserCredential, error) {
	id, err := r.idForEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	hash, err := r.client.HGet(ctx, userKey(id), "password_hash").Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: read credential: %w", err)
	}
	return &domain.UserCredential{User: user, PasswordHash: hash}, nil
}

// Create claims the email index with SETNX before writing the record, so only
// one of several concurrent registrations for an email can proceed.
func (r *UserRepository) Create(ctx context.Context, user *domain.User, passwordHash string) (*domain.User, error) {
	id := uuid.NewString()

	claimed, err := r.client.SetNX(ctx, emailKey(user.Email), id, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: claim email: %w", err)
	}
	if !claimed {
		return nil, domain.ErrEmailTaken
	}

	now := time.Now().UTC().Unix()
	ru := redisUser{
		ID:        id,
		Email:     user.Email,
		Username:  user.Username,
		Role:      string(user.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, userKey(id), ru)
		p.HSet(ctx, userKey(id), "password_hash", passwordHash)
		return nil
	})
	if err != nil {
		// Release the claim so the email is not locked by a half-written user.
		_ = r.client.Del(context.WithoutCancel(ctx), emailKey(user.Email)).Err()
		return nil, fmt.Errorf("redis: write user: %w", err)
	}
	return ru.toDomain(), nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *UserRepository) idForEmail(ctx context.Context, email string) (string, error) {
	id, err := r.client.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: read email index: %w", err)
	}
	return id, nil
}

func (ru *redisUser) toDomain() *domain.User {
	return &domain.User{
		ID:        ru.ID,
		Email:     ru.Email,
		Username:  ru.Username,
		Role:      domain.Role(ru.Role),
		CreatedAt: time.Unix(ru.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(ru.UpdatedAt, 0).UTC(),
	}
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func emailKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}
