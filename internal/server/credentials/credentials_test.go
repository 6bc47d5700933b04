package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/serezk4/collectiond/internal/apperrors"
	"github.com/serezk4/collectiond/internal/model"
)

type fakeUserStore struct {
	users   map[string]model.User
	nextID  int64
	saveErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]model.User{}}
}

func (s *fakeUserStore) ExistsUserByUsername(ctx context.Context, username string) (bool, error) {
	_, ok := s.users[username]
	return ok, nil
}

func (s *fakeUserStore) SaveUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	if s.saveErr != nil {
		return model.User{}, s.saveErr
	}
	if _, ok := s.users[username]; ok {
		return model.User{}, apperrors.ErrDuplicateUser
	}
	s.nextID++
	u := model.User{ID: s.nextID, Username: username, PasswordHash: passwordHash}
	s.users[username] = u
	return u, nil
}

func TestHashIsDeterministicAnd56HexChars(t *testing.T) {
	h1 := Hash("pw")
	h2 := Hash("pw")
	require.Equal(t, h1, h2)
	require.Len(t, h1, 56)
}

func TestHashKnownVector(t *testing.T) {
	// SHA-224("pw"), lowercase hex.
	require.Equal(t, "bebeef056d2fc0c96fbdd3372c8b766a0d3b5bac45cc56a4f15235cd", Hash("pw"))
}

func TestVerifyAcceptsCorrectPassword(t *testing.T) {
	h := Hash("correct horse battery staple")
	require.True(t, Verify(h, "correct horse battery staple"))
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	h := Hash("correct horse battery staple")
	require.False(t, Verify(h, "wrong"))
}

func TestHashDiffersForDifferentInputs(t *testing.T) {
	require.NotEqual(t, Hash("a"), Hash("b"))
}

func TestRegisterPersistsHashedPassword(t *testing.T) {
	store := newFakeUserStore()

	u, err := Register(context.Background(), store, "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, Hash("pw"), u.PasswordHash)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	store := newFakeUserStore()

	_, err := Register(context.Background(), store, "alice", "pw")
	require.NoError(t, err)

	_, err = Register(context.Background(), store, "alice", "other")
	require.ErrorIs(t, err, apperrors.ErrDuplicateUser)
}
