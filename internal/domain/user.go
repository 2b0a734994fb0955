package domain

import (
	"net/mail"
	"strings"
)

// Role grants a set of capabilities.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCollector  Role = "collector"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCollector, RoleEditor, RoleViewer, RoleSupervisor:
		return true
	}
	return false
}

// UserHeader is the header row of the users table.
var UserHeader = []string{"Username", "Name", "Email", "Password", "Role"}

// User is an account. PasswordHash holds a bcrypt hash.
type User struct {
	Row          int    `json:"-"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

func (u User) Cells() []string {
	return []string{u.Username, u.Name, u.Email, u.PasswordHash, string(u.Role)}
}

// DecodeUsers decodes every row of the users table.
func DecodeUsers(t Table) []User {
	records := t.Records()
	out := make([]User, len(records))
	for i, r := range records {
		out[i] = User{
			Row:          r.Row,
			Username:     r.Get("Username"),
			Name:         r.Get("Name"),
			Email:        r.Get("Email"),
			PasswordHash: r.Get("Password"),
			Role:         Role(strings.ToLower(r.Get("Role"))),
		}
	}
	return out
}

// UserInput is a new or edited account. Password is plaintext and only
// checked when required.
type UserInput struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Role     Role   `json:"role"`
}

// Normalize trims fields and lower-cases the role and email.
func (in UserInput) Normalize() UserInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = Role(strings.ToLower(strings.TrimSpace(string(in.Role))))
	return in
}

// Validate checks the account fields. The password is only checked when
// requirePassword is set.
func (in UserInput) Validate(requirePassword bool) error {
	verr := &ValidationError{}
	if in.Username == "" {
		verr.add("username", "is required")
	} else if strings.ContainsAny(in.Username, " \t") {
		verr.add("username", "must not contain spaces")
	}
	if in.Name == "" {
		verr.add("name", "is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		verr.add("email", "must be a valid address")
	}
	if !in.Role.Valid() {
		verr.add("role", "must be one of admin, collector, editor, viewer, supervisor")
	}
	if requirePassword && len(in.Password) < MinPasswordLength {
		verr.add("password", "must be at least 6 characters")
	}
	return verr.orNil()
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// FindUser returns the user with the given username.
func FindUser(users []User, username string) (User, bool) {
	username = strings.TrimSpace(username)
	for _, u := range users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}
