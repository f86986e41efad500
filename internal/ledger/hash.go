package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xelth-com/eckpunchgo/internal/models"
)

const maxCodeLength = 10

// IntegrityHash fingerprints the immutable part of a punch
func IntegrityHash(badge string, ts time.Time, movement models.Movement) string {
	sum := sha256.Sum256([]byte(badge + "|" + ts.UTC().Format(time.RFC3339) + "|" + string(movement)))
	return hex.EncodeToString(sum[:])
}

// NormalizeCode strips everything but ASCII digits from an employee code.
// The result must hold between 1 and 10 digits.
func NormalizeCode(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	code := b.String()
	switch {
	case code == "":
		return "", &ValidationError{Field: "code", Reason: "must contain at least one digit"}
	case len(code) > maxCodeLength:
		return "", &ValidationError{Field: "code", Reason: "must be at most 10 digits"}
	}
	return code, nil
}

func normalizeBadge(raw string) (string, error) {
	badge := strings.TrimSpace(raw)
	if badge == "" {
		return "", &ValidationError{Field: "badge", Reason: "must not be empty"}
	}
	if !utf8.ValidString(badge) {
		return "", &ValidationError{Field: "badge", Reason: "must be valid UTF-8"}
	}
	return badge, nil
}
