package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/backend/pkg/jwt"
)

func TestSplitPermissions(t *testing.T) {
	assert.Nil(t, splitPermissions(""))
	assert.Equal(t, []string{"update:games", "delete:games"}, splitPermissions(" update:games, ,delete:games "))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--config", t.TempDir(), "--sub", "auth0|7", "--permissions", "create:genres"})

	require.NoError(t, rootCmd.Execute())

	claims, err := jwt.ParseToken("cli-secret", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "auth0|7", claims.Subject)
	assert.Equal(t, []string{"create:genres"}, claims.Permissions)
}
