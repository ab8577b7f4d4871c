package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserToken_RoundTrip(t *testing.T) {
	token, err := GenerateUserToken("secret", UserClaims{ID: "u1", Username: "sekretaris", OrganizationID: "org-1"}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseUserToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "org-1", claims.OrganizationID)
}

func TestUserToken_Rejects(t *testing.T) {
	token, err := GenerateUserToken("secret", UserClaims{ID: "u1"}, time.Hour)
	require.NoError(t, err)
	_, err = ParseUserToken("other", token)
	assert.Error(t, err)

	expired, err := GenerateUserToken("secret", UserClaims{ID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseUserToken("secret", expired)
	assert.Error(t, err)

	_, err = GenerateUserToken("", UserClaims{}, time.Hour)
	assert.Error(t, err)
}
