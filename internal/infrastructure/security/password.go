package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"streamhub/internal/core/ports"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SchemeBcrypt       = "bcrypt"
	SchemePBKDF2SHA256 = "pbkdf2_sha256"

	DefaultBcryptCost   = 12
	DefaultPBKDF2Rounds = 29000

	pbkdf2Prefix  = "$pbkdf2-sha256$"
	pbkdf2SaltLen = 16
	pbkdf2KeyLen  = 32
)

// BcryptHasher hashes with bcrypt. The digest embeds cost and salt.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// PBKDF2Hasher produces "$pbkdf2-sha256$<rounds>$<salt>$<checksum>" digests,
// base64 encoded with "." in place of "+" and no padding.
type PBKDF2Hasher struct {
	rounds int
}

func NewPBKDF2Hasher(rounds int) (*PBKDF2Hasher, error) {
	if rounds == 0 {
		rounds = DefaultPBKDF2Rounds
	}
	if rounds < 1000 {
		return nil, fmt.Errorf("pbkdf2 rounds %d too low (min 1000)", rounds)
	}
	return &PBKDF2Hasher{rounds: rounds}, nil
}

func (h *PBKDF2Hasher) Hash(plain string) (string, error) {
	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	sum := pbkdf2.Key([]byte(plain), salt, h.rounds, pbkdf2KeyLen, sha256.New)
	return fmt.Sprintf("%s%d$%s$%s", pbkdf2Prefix, h.rounds, encodeAB64(salt), encodeAB64(sum)), nil
}

func (h *PBKDF2Hasher) Verify(plain, digest string) bool {
	if !strings.HasPrefix(digest, pbkdf2Prefix) {
		return false
	}
	parts := strings.Split(strings.TrimPrefix(digest, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return false
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 {
		return false
	}
	salt, err := decodeAB64(parts[1])
	if err != nil {
		return false
	}
	want, err := decodeAB64(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(plain), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func encodeAB64(b []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
}

func decodeAB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}

// MultiHasher hashes with one scheme and verifies digests of any known scheme,
// so stored credentials keep working after the configured scheme changes.
type MultiHasher struct {
	primary ports.PasswordHasher
	bcrypt  ports.PasswordHasher
	pbkdf2  ports.PasswordHasher
}

func (h *MultiHasher) Hash(plain string) (string, error) {
	return h.primary.Hash(plain)
}

func (h *MultiHasher) Verify(plain, digest string) bool {
	switch {
	case strings.HasPrefix(digest, pbkdf2Prefix):
		return h.pbkdf2.Verify(plain, digest)
	case strings.HasPrefix(digest, "$2"):
		return h.bcrypt.Verify(plain, digest)
	default:
		return false
	}
}

// NewPasswordHasher builds the hasher for the configured scheme.
func NewPasswordHasher(scheme string, bcryptCost, pbkdf2Rounds int) (*MultiHasher, error) {
	bh, err := NewBcryptHasher(bcryptCost)
	if err != nil {
		return nil, err
	}
	ph, err := NewPBKDF2Hasher(pbkdf2Rounds)
	if err != nil {
		return nil, err
	}

	h := &MultiHasher{bcrypt: bh, pbkdf2: ph}
	switch scheme {
	case SchemeBcrypt, "":
		h.primary = bh
	case SchemePBKDF2SHA256:
		h.primary = ph
	default:
		return nil, fmt.Errorf("unsupported password scheme %q", scheme)
	}
	return h, nil
}
