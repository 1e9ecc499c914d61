// Package auth provides password hashing and signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// defaultCost is the bcrypt work factor. Roughly 250ms per hash on current
// server hardware.
const defaultCost = 12

// ErrPasswordMismatch is returned by Verify when the candidate password does
// not hash to the stored value.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
//
// bcrypt is CPU-bound, so concurrent hashing is bounded by a weighted
// semaphore sized to GOMAXPROCS: a burst of logins can never occupy every
// scheduler thread at once. The cost is injectable so tests can use the
// bcrypt minimum instead of the production cost.
type PasswordService struct {
	cost int
	sem  *semaphore.Weighted
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return newPasswordService(defaultCost)
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Use bcrypt.MinCost in tests; do not use low costs in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordService(cost)
}

func newPasswordService(cost int) *PasswordService {
	return &PasswordService{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Hash hashes the given plaintext password with bcrypt. The output embeds
// the salt and cost, so two calls with the same input produce different
// strings that both verify.
//
// Rejects plaintexts longer than 72 bytes, which bcrypt would otherwise
// silently truncate.
func (p *PasswordService) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("auth: waiting for hashing slot: %w", err)
	}
	defer p.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// HashIfChanged returns the stored hash untouched when plaintext already
// verifies against it, and a fresh hash otherwise. Keeps unrelated updates
// from re-hashing an already-hashed value.
func (p *PasswordService) HashIfChanged(ctx context.Context, storedHash, plaintext string) (string, error) {
	if storedHash != "" && p.Verify(ctx, storedHash, plaintext) == nil {
		return storedHash, nil
	}
	return p.Hash(ctx, plaintext)
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// Returns ErrPasswordMismatch when it doesn't. The comparison is
// constant-time inside bcrypt.
func (p *PasswordService) Verify(ctx context.Context, hash, plaintext string) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("auth: waiting for hashing slot: %w", err)
	}
	defer p.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
