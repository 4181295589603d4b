package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glowchat/internal/domain/user"
)

type stubRepository struct {
	users      map[string]*user.User
	nextID     uint
	upsertSeen *user.User
}

func newStubRepository() *stubRepository {
	return &stubRepository{users: make(map[string]*user.User)}
}

func (r *stubRepository) key(issuer, subject string) string {
	return issuer + "|" + subject
}

func (r *stubRepository) FindByIssuerAndSubject(_ context.Context, issuer, subject string) (*user.User, error) {
	if u, ok := r.users[r.key(issuer, subject)]; ok {
		return u, nil
	}
	return nil, nil
}

func (r *stubRepository) FindByID(_ context.Context, id uint) (*user.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *stubRepository) Upsert(_ context.Context, u *user.User) (*user.User, error) {
	r.upsertSeen = u
	key := r.key(u.Issuer, u.Subject)
	if existing, ok := r.users[key]; ok {
		existing.Username = u.Username
		existing.Email = u.Email
		existing.Name = u.Name
		existing.Picture = u.Picture
		return existing, nil
	}
	r.nextID++
	u.ID = r.nextID
	r.users[key] = u
	return u, nil
}

func TestEnsureUser_CreatesOnFirstLogin(t *testing.T) {
	repo := newStubRepository()
	service := user.NewService(repo)

	email := "alice@example.com"
	created, err := service.EnsureUser(context.Background(), user.Identity{
		Provider: "jwt",
		Issuer:   "https://id.example.com",
		Subject:  "sub-1",
		Email:    &email,
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, uint(1), created.ID)
	assert.Equal(t, "jwt", created.AuthProvider)
	assert.Equal(t, "https://id.example.com", created.Issuer)
	assert.Equal(t, "sub-1", created.Subject)
	require.NotNil(t, created.Email)
	assert.Equal(t, email, *created.Email)
}

func TestEnsureUser_UpsertsSameIdentity(t *testing.T) {
	repo := newStubRepository()
	service := user.NewService(repo)

	identity := user.Identity{Issuer: "https://id.example.com", Subject: "sub-1"}

	first, err := service.EnsureUser(context.Background(), identity)
	require.NoError(t, err)

	name := "Alice"
	identity.Name = &name
	second, err := service.EnsureUser(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same identity must resolve to the same user")
	require.NotNil(t, second.Name)
	assert.Equal(t, name, *second.Name)
}

func TestEnsureUser_DefaultsProvider(t *testing.T) {
	repo := newStubRepository()
	service := user.NewService(repo)

	created, err := service.EnsureUser(context.Background(), user.Identity{
		Issuer:  "https://id.example.com",
		Subject: "sub-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "oidc", created.AuthProvider)
}

func TestEnsureUser_RejectsIncompleteIdentity(t *testing.T) {
	service := user.NewService(newStubRepository())

	for _, identity := range []user.Identity{
		{Subject: "sub-1"},
		{Issuer: "https://id.example.com"},
		{},
	} {
		_, err := service.EnsureUser(context.Background(), identity)
		assert.ErrorIs(t, err, user.ErrInvalidIdentity)
	}
}
