package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jumjum/backend/internal/config"
)

func TestValidateSecurityConfigRejectsShortSecret(t *testing.T) {
	require.Error(t, validateSecurityConfig(config.Config{AuthSecret: "short"}))
	require.Error(t, validateSecurityConfig(config.Config{}))
}

func TestValidateSecurityConfigAcceptsLongSecret(t *testing.T) {
	require.NoError(t, validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"}))
}
