package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserDefaults(t *testing.T) {
	u, err := NewUser(CreateParams{ID: "u-1", Email: " Ann@Example.COM ", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, []Role{RoleGuest}, u.Roles)
	assert.Equal(t, "Ann Lee", u.FullName())
}

func TestNewUserValidation(t *testing.T) {
	_, err := NewUser(CreateParams{ID: "u-1", Email: "a@b.c", FirstName: "Ann", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = NewUser(CreateParams{ID: "u-1", Email: "a@b.c", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash", Roles: []Role{"root"}})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = NewUser(CreateParams{ID: "u-1", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrEmailRequired)
}

func TestEnsureRole(t *testing.T) {
	u, err := NewUser(CreateParams{ID: "u-1", Email: "a@b.c", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash"})
	require.NoError(t, err)

	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, u.EnsureRole("HOST", now))
	assert.True(t, u.HasRole(RoleHost))
	assert.Equal(t, now, u.UpdatedAt)
	require.NoError(t, u.EnsureRole(RoleHost, now.Add(time.Hour)))
	assert.Len(t, u.Roles, 2)
	assert.ErrorIs(t, u.EnsureRole("pilot", now), ErrInvalidRole)
}

func TestUpdateProfile(t *testing.T) {
	u, err := NewUser(CreateParams{ID: "u-1", Email: "a@b.c", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash"})
	require.NoError(t, err)

	phone := " +44 1234 "
	require.NoError(t, u.UpdateProfile(ProfileUpdate{Phone: &phone}, time.Time{}))
	assert.Equal(t, "+44 1234", u.Phone)
	assert.Equal(t, "Ann", u.FirstName)

	empty := ""
	assert.ErrorIs(t, u.UpdateProfile(ProfileUpdate{LastName: &empty}, time.Time{}), ErrNameRequired)
	assert.Equal(t, "Lee", u.LastName)
}
