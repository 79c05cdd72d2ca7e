package thread

import "strings"

// AuthorRole separates official replies from user comments.
type AuthorRole int

const (
	RoleUser AuthorRole = iota
	RoleAdmin
)

func (r AuthorRole) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}

func (r AuthorRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Classifier resolves an author email to a role. The admin sentinel is
// compared here and nowhere else.
type Classifier struct {
	adminEmail string
}

func NewClassifier(adminEmail string) Classifier {
	return Classifier{adminEmail: normalizeEmail(adminEmail)}
}

func (c Classifier) Role(email string) AuthorRole {
	if c.IsAdminEmail(email) {
		return RoleAdmin
	}
	return RoleUser
}

func (c Classifier) IsAdminEmail(email string) bool {
	return c.adminEmail != "" && normalizeEmail(email) == c.adminEmail
}

func (c Classifier) AdminEmail() string { return c.adminEmail }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
