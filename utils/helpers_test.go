package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("changeme123")
	require.NoError(t, err)
	assert.NotEqual(t, "changeme123", hash)
	assert.NoError(t, CheckPassword("changeme123", hash))
	assert.Error(t, CheckPassword("wrong", hash))
}

func TestIsValidRole(t *testing.T) {
	for _, role := range []string{"owner", "admin", "accountant", "teacher"} {
		assert.True(t, IsValidRole(role), role)
	}
	assert.False(t, IsValidRole("superuser"))
	assert.False(t, IsValidRole(""))
}

func TestIsValidFileExtension(t *testing.T) {
	allowed := []string{"csv", "xlsx"}
	assert.True(t, IsValidFileExtension("payments.csv", allowed))
	assert.True(t, IsValidFileExtension("Payments.XLSX", allowed))
	assert.False(t, IsValidFileExtension("payments.exe", allowed))
	assert.False(t, IsValidFileExtension("payments", allowed))
}
