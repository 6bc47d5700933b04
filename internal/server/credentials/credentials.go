// Package credentials hashes and verifies user passwords.
//
// Hashing is unsalted SHA-224, preserved exactly from the source system's
// contract so that existing stored hashes remain verifiable. This is weak;
// a salted password-hashing function (argon2/bcrypt/scrypt) is the
// recommended upgrade path, noted here but not applied.
package credentials

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/serezk4/collectiond/internal/apperrors"
	"github.com/serezk4/collectiond/internal/model"
)

// Hash returns the lowercase hex-encoded SHA-224 digest of the UTF-8 bytes
// of plaintext. It is deterministic: Hash(p) == Hash(p) for all p.
func Hash(plaintext string) string {
	sum := sha256.Sum224([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether plaintext hashes to storedHash, using a
// constant-time comparison so the check does not leak timing information
// about how much of the hash matched.
func Verify(storedHash, plaintext string) bool {
	got := Hash(plaintext)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedHash)) == 1
}

// UserStore is the subset of the persistence gateway Register needs.
type UserStore interface {
	ExistsUserByUsername(ctx context.Context, username string) (bool, error)
	SaveUser(ctx context.Context, username, passwordHash string) (model.User, error)
}

// Register creates a new user with the given username and plaintext
// password. It fails with apperrors.ErrDuplicateUser if the username is
// already taken — checked up front, and again implicitly by the store's
// unique constraint in case of a race between the check and the insert.
//
// There is no router command for this: registration is an administrative
// operation invoked outside the framed wire protocol, not something a
// connected client can trigger on its own behalf.
func Register(ctx context.Context, store UserStore, username, plaintext string) (model.User, error) {
	exists, err := store.ExistsUserByUsername(ctx, username)
	if err != nil {
		return model.User{}, err
	}
	if exists {
		return model.User{}, apperrors.ErrDuplicateUser
	}
	return store.SaveUser(ctx, username, Hash(plaintext))
}
