package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainuser "stayfinder/internal/domain/user"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "wrong horse"))
}

func TestJWTIssuerRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	issuer := &JWTIssuer{Secret: []byte("s3cret"), TTL: time.Hour, Now: func() time.Time { return now }}
	user := &domainuser.User{ID: "u-1", Roles: []domainuser.Role{domainuser.RoleGuest, domainuser.RoleHost}}

	token, expiresAt, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, user.Roles, claims.Roles)
	assert.True(t, claims.ExpiresAt.Equal(expiresAt))
}

func TestJWTIssuerRejects(t *testing.T) {
	now := time.Now()
	issuer := &JWTIssuer{Secret: []byte("s3cret"), TTL: time.Minute, Now: func() time.Time { return now }}
	token, _, err := issuer.Issue(&domainuser.User{ID: "u-1"})
	require.NoError(t, err)

	other := &JWTIssuer{Secret: []byte("other"), Now: issuer.Now}
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := &JWTIssuer{Secret: []byte("s3cret"), Now: func() time.Time { return now.Add(2 * time.Minute) }}
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = issuer.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
