package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectmanager/internal/apperr"
	"projectmanager/internal/models"
)

func TestIssueAndParse(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	id := models.Identity{ID: "7d0c7f0e-2a3c-4b43-9b44-3f7e3c3a1e11", Email: "a@example.com", Role: models.RoleAdmin}

	token, err := ti.Issue(id)
	require.NoError(t, err)

	got, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret", time.Hour).Issue(models.Identity{ID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestParseRejectsExpiredToken(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Minute)
	ti.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := ti.Issue(models.Identity{ID: "u1"})
	require.NoError(t, err)

	_, err = ti.Parse(token)
	require.Error(t, err)
	assert.Equal(t, "Token expired", err.Error())
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).Parse(s)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestParseRejectsMissingUser(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	token, err := ti.Issue(models.Identity{})
	require.NoError(t, err)

	_, err = ti.Parse(token)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
