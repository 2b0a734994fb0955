package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/pm25-field-data/internal/auth"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// Authenticate returns the account matching username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	u, ok := domain.FindUser(users, username)
	if !ok || !auth.CheckPassword(u.PasswordHash, password) {
		s.logger.Warn("login failed", "username", strings.TrimSpace(username))
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return u, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	t, err := s.readTable(ctx, domain.TableUsers)
	if err != nil {
		return nil, err
	}
	return domain.DecodeUsers(t), nil
}

// CreateUser adds an account. Usernames and emails must be unique.
func (s *Service) CreateUser(ctx context.Context, in domain.UserInput) (domain.User, error) {
	in = in.Normalize()
	if err := in.Validate(true); err != nil {
		return domain.User{}, err
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if conflict(users, in, "") {
		return domain.User{}, domain.ErrDuplicateUser
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{Username: in.Username, Name: in.Name, Email: in.Email, PasswordHash: hash, Role: in.Role}
	if err := s.store.AppendRow(ctx, domain.TableUsers, u.Cells()); err != nil {
		return domain.User{}, fmt.Errorf("append user: %w", err)
	}
	s.logger.Info("user created", "username", u.Username, "role", u.Role)
	return u, nil
}

// UpdateUser rewrites the name, email and role of username. The username
// and password are not changed.
func (s *Service) UpdateUser(ctx context.Context, username string, in domain.UserInput) (domain.User, error) {
	in.Username = username
	in = in.Normalize()
	if err := in.Validate(false); err != nil {
		return domain.User{}, err
	}

	t, err := s.readTable(ctx, domain.TableUsers)
	if err != nil {
		return domain.User{}, err
	}
	users := domain.DecodeUsers(t)
	u, ok := domain.FindUser(users, in.Username)
	if !ok {
		return domain.User{}, fmt.Errorf("user %q: %w", in.Username, domain.ErrRecordNotFound)
	}
	if conflict(users, in, u.Username) {
		return domain.User{}, domain.ErrDuplicateUser
	}

	updates := map[string]string{"Name": in.Name, "Email": in.Email, "Role": string(in.Role)}
	for col, value := range updates {
		if err := s.setUserCell(ctx, t, u.Row, col, value); err != nil {
			return domain.User{}, err
		}
	}

	u.Name, u.Email, u.Role = in.Name, in.Email, in.Role
	s.logger.Info("user updated", "username", u.Username, "role", u.Role)
	return u, nil
}

// DeleteUser removes username. Users cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actor, username string) error {
	if strings.TrimSpace(actor) == strings.TrimSpace(username) {
		return fmt.Errorf("delete own account: %w", domain.ErrForbidden)
	}
	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	u, ok := domain.FindUser(users, username)
	if !ok {
		return fmt.Errorf("user %q: %w", username, domain.ErrRecordNotFound)
	}
	if err := s.store.DeleteRow(ctx, domain.TableUsers, u.Row); err != nil {
		return fmt.Errorf("delete user %q: %w", u.Username, err)
	}
	s.logger.Info("user deleted", "username", u.Username, "by", actor)
	return nil
}

// ResetPassword sets a new password for username. Admin passwords cannot be
// reset this way.
func (s *Service) ResetPassword(ctx context.Context, username, password string) error {
	t, err := s.readTable(ctx, domain.TableUsers)
	if err != nil {
		return err
	}
	u, ok := domain.FindUser(domain.DecodeUsers(t), username)
	if !ok {
		return fmt.Errorf("user %q: %w", username, domain.ErrRecordNotFound)
	}
	if u.Role == domain.RoleAdmin {
		return fmt.Errorf("reset admin password: %w", domain.ErrForbidden)
	}
	if len(password) < domain.MinPasswordLength {
		return &domain.ValidationError{Problems: []domain.Problem{{Field: "password", Message: "must be at least 6 characters"}}}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.setUserCell(ctx, t, u.Row, "Password", hash); err != nil {
		return err
	}
	s.logger.Info("password reset", "username", u.Username)
	return nil
}

func (s *Service) setUserCell(ctx context.Context, t domain.Table, row int, col, value string) error {
	idx := t.ColumnIndex(col)
	if idx == 0 {
		return fmt.Errorf("users table has no %q column: %w", col, domain.ErrRowOutOfRange)
	}
	if err := s.store.UpdateCell(ctx, domain.TableUsers, row, idx, value); err != nil {
		return fmt.Errorf("update user %q: %w", col, err)
	}
	return nil
}

// conflict reports whether another account than self already uses the
// username or email of in.
func conflict(users []domain.User, in domain.UserInput, self string) bool {
	for _, u := range users {
		if u.Username == self && self != "" {
			continue
		}
		if u.Username == in.Username || strings.EqualFold(u.Email, in.Email) {
			return true
		}
	}
	return false
}
