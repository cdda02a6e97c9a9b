package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnpath/lms-api/internal/core/domain"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	argon2idPrefix = "$argon2id$"
)

// Argon2Params are the argon2id cost parameters used when hashing.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 1,
	SaltLen:     16,
	KeyLen:      32,
}

// PasswordHasher hashes new passwords and verifies submitted ones against
// stored hashes. Stored hashes embed their own salt and cost, so hashes made
// with older settings keep verifying.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
	argon      Argon2Params
}

// NewPasswordHasher returns a hasher producing hashes with algorithm. Unknown
// algorithms fall back to bcrypt; out-of-range costs fall back to bcrypt.DefaultCost.
func NewPasswordHasher(algorithm string, bcryptCost int) *PasswordHasher {
	if algorithm != AlgorithmArgon2id {
		algorithm = AlgorithmBcrypt
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &PasswordHasher{algorithm: algorithm, bcryptCost: bcryptCost, argon: DefaultArgon2Params}
}

// Hash returns the encoded hash of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", domain.ErrInvalidInput
	}
	if h.algorithm == AlgorithmArgon2id {
		return h.hashArgon2id(plaintext)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password too long", domain.ErrInvalidInput)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches storedHash. A mismatch is (false, nil);
// a stored hash that cannot be parsed is (false, domain.ErrDataIntegrity).
func (h *PasswordHasher) Verify(plaintext, storedHash string) (bool, error) {
	if strings.HasPrefix(storedHash, argon2idPrefix) {
		return verifyArgon2id(plaintext, storedHash)
	}

	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", domain.ErrDataIntegrity, err)
	}
}

// hashArgon2id encodes as $argon2id$v=19$m=<M>,t=<T>,p=<P>$<salt>$<key>.
func (h *PasswordHasher) hashArgon2id(plaintext string) (string, error) {
	p := h.argon
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2id(plaintext, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("%w: argon2id hash has %d segments", domain.ErrDataIntegrity, len(parts))
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported argon2id version %q", domain.ErrDataIntegrity, parts[2])
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil || t == 0 || p == 0 {
		return false, fmt.Errorf("%w: bad argon2id parameters", domain.ErrDataIntegrity)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: bad argon2id salt", domain.ErrDataIntegrity)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: bad argon2id key", domain.ErrDataIntegrity)
	}

	got := argon2.IDKey([]byte(plaintext), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
