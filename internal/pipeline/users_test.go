package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

func TestService_Users(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	admin, err := svc.CreateUser(ctx, domain.UserInput{Username: "ama", Name: "Ama", Email: "Ama@Example.com", Password: "s3cret!", Role: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.Equal(t, "ama@example.com", admin.Email)
	assert.NotEqual(t, "s3cret!", admin.PasswordHash)

	_, err = svc.CreateUser(ctx, domain.UserInput{Username: "kofi", Name: "Kofi", Email: "kofi@example.com", Password: "password", Role: domain.RoleCollector})
	require.NoError(t, err)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, domain.UserInput{Username: "kofi", Name: "K", Email: "other@example.com", Password: "password", Role: domain.RoleViewer})
		assert.ErrorIs(t, err, domain.ErrDuplicateUser)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, domain.UserInput{Username: "yaw", Name: "Yaw", Email: "KOFI@example.com", Password: "password", Role: domain.RoleViewer})
		assert.ErrorIs(t, err, domain.ErrDuplicateUser)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, domain.UserInput{Username: "yaw", Email: "yaw", Role: "root"})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Problems, 4)
	})

	t.Run("authenticate", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "ama", "s3cret!")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, u.Role)

		_, err = svc.Authenticate(ctx, "ama", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		_, err = svc.Authenticate(ctx, "nobody", "s3cret!")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("update", func(t *testing.T) {
		u, err := svc.UpdateUser(ctx, "kofi", domain.UserInput{Name: "Kofi Boateng", Email: "kofi@example.com", Role: domain.RoleEditor})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleEditor, u.Role)

		_, err = svc.UpdateUser(ctx, "kofi", domain.UserInput{Name: "Kofi", Email: "ama@example.com", Role: domain.RoleEditor})
		assert.ErrorIs(t, err, domain.ErrDuplicateUser)

		_, err = svc.UpdateUser(ctx, "nobody", domain.UserInput{Name: "N", Email: "n@example.com", Role: domain.RoleViewer})
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		users, err := svc.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "Kofi Boateng", users[1].Name)

		_, err = svc.Authenticate(ctx, "kofi", "password")
		assert.NoError(t, err, "update must keep the password")
	})

	t.Run("reset password", func(t *testing.T) {
		require.NoError(t, svc.ResetPassword(ctx, "kofi", "new-pass"))
		_, err := svc.Authenticate(ctx, "kofi", "new-pass")
		assert.NoError(t, err)

		assert.ErrorIs(t, svc.ResetPassword(ctx, "ama", "new-pass"), domain.ErrForbidden)
		assert.ErrorIs(t, svc.ResetPassword(ctx, "nobody", "new-pass"), domain.ErrRecordNotFound)

		var verr *domain.ValidationError
		assert.ErrorAs(t, svc.ResetPassword(ctx, "kofi", "abc"), &verr)
	})

	t.Run("delete", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteUser(ctx, "ama", "ama"), domain.ErrForbidden)
		require.NoError(t, svc.DeleteUser(ctx, "ama", "kofi"))
		assert.ErrorIs(t, svc.DeleteUser(ctx, "ama", "kofi"), domain.ErrRecordNotFound)

		users, err := svc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})
}
