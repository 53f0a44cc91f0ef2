package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/phongthuytaman/backend-store/internal/store"
)

var errNotFound = errors.New("not found")

type fakeQueries struct {
	mu           sync.Mutex
	usersByEmail map[string]store.User
	usersByID    map[string]store.User
	tokensByHash map[string]store.RefreshToken
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		usersByEmail: map[string]store.User{},
		usersByID:    map[string]store.User{},
		tokensByHash: map[string]store.RefreshToken{},
	}
}

func (f *fakeQueries) CreateUser(_ context.Context, arg store.CreateUserParams) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.usersByEmail[arg.Email]; exists {
		return store.User{}, errors.New("duplicate email")
	}
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	roles := arg.Roles
	if len(roles) == 0 {
		roles = []string{"customer"}
	}
	user := store.User{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.usersByEmail[arg.Email] = user
	f.usersByID[store.UUIDString(user.ID)] = user
	return user, nil
}

func (f *fakeQueries) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.usersByEmail[email]
	if !ok {
		return store.User{}, errNotFound
	}
	return user, nil
}

func (f *fakeQueries) GetUserByID(_ context.Context, id pgtype.UUID) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.usersByID[store.UUIDString(id)]
	if !ok {
		return store.User{}, errNotFound
	}
	return user, nil
}

func (f *fakeQueries) InsertRefreshToken(_ context.Context, arg store.InsertRefreshTokenParams) (store.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := store.RefreshToken{
		ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
		UserID:    arg.UserID,
		TokenHash: arg.TokenHash,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.tokensByHash[arg.TokenHash] = token
	return token, nil
}

func (f *fakeQueries) GetRefreshTokenByHash(_ context.Context, tokenHash string) (store.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokensByHash[tokenHash]
	if !ok || token.RevokedAt.Valid {
		return store.RefreshToken{}, errNotFound
	}
	return token, nil
}

func (f *fakeQueries) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokensByHash[tokenHash]; ok {
		token.RevokedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		f.tokensByHash[tokenHash] = token
	}
	return nil
}
