package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Identity struct {
	ID           uuid.UUID `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	// RefreshTokenHash is the digest of the single live refresh token, empty when logged out.
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Public returns a copy without credential material.
func (i *Identity) Public() *Identity {
	if i == nil {
		return nil
	}
	cp := *i
	cp.PasswordHash = ""
	cp.RefreshTokenHash = ""
	return &cp
}

var handleRe = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

func NormalizeHandle(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ValidHandle expects an already normalized handle. Handles never contain '@',
// which keeps them disjoint from email addresses at login.
func ValidHandle(h string) bool { return handleRe.MatchString(h) }

func ValidEmail(e string) bool {
	at := strings.IndexByte(e, '@')
	return at > 0 && at < len(e)-1 && !strings.ContainsAny(e, " \t\r\n")
}
