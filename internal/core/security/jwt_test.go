package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	validator := NewJWTValidator([]byte("test-secret"))

	token, err := validator.IssueToken(&Actor{
		ID:          "u1",
		Name:        "Operator",
		Permissions: []string{PermLedgerPost, PermReportsView},
	}, time.Hour)
	require.NoError(t, err)

	actor, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", actor.ID)
	assert.Equal(t, "Operator", actor.Name)
	assert.Equal(t, []string{PermLedgerPost, PermReportsView}, actor.Permissions)
	assert.False(t, actor.IsAdmin)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewJWTValidator([]byte("secret-a")).IssueToken(&Actor{ID: "u1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTValidator([]byte("secret-b")).ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	validator := NewJWTValidator([]byte("test-secret"))

	token, err := validator.IssueToken(&Actor{ID: "u1"}, -time.Minute)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := NewJWTValidator([]byte("test-secret")).ValidateToken("not-a-token")
	require.Error(t, err)
}
