package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CONFIG_TEST_HOST", "db.internal")

	t.Run("no dollar sign passes through", func(t *testing.T) {
		assert.Equal(t, "plain", expandEnvVars("plain"))
	})

	t.Run("braced variable", func(t *testing.T) {
		assert.Equal(t, "db.internal", expandEnvVars("${CONFIG_TEST_HOST}"))
	})

	t.Run("simple variable", func(t *testing.T) {
		assert.Equal(t, "db.internal", expandEnvVars("$CONFIG_TEST_HOST"))
	})

	t.Run("with default, unset uses default", func(t *testing.T) {
		assert.Equal(t, "fallback", expandEnvVars("${CONFIG_TEST_UNSET:-fallback}"))
	})

	t.Run("with default, set overrides default", func(t *testing.T) {
		assert.Equal(t, "db.internal", expandEnvVars("${CONFIG_TEST_HOST:-fallback}"))
	})
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("FALSE"))
	assert.Equal(t, 42, parseValue("42"))
	assert.Equal(t, 3.5, parseValue("3.5"))
	assert.Equal(t, "hello", parseValue("hello"))
}

func TestExpandEnvVarsInData(t *testing.T) {
	t.Setenv("CONFIG_TEST_PORT", "9090")

	t.Run("string leaf expands and parses", func(t *testing.T) {
		assert.Equal(t, 9090, ExpandEnvVarsInData("$CONFIG_TEST_PORT"))
	})

	t.Run("nested map", func(t *testing.T) {
		in := map[string]interface{}{"port": "$CONFIG_TEST_PORT"}
		out := ExpandEnvVarsInData(in).(map[string]interface{})
		assert.Equal(t, 9090, out["port"])
	})

	t.Run("slice", func(t *testing.T) {
		in := []interface{}{"$CONFIG_TEST_PORT", "literal"}
		out := ExpandEnvVarsInData(in).([]interface{})
		assert.Equal(t, 9090, out[0])
		assert.Equal(t, "literal", out[1])
	})
}

func TestGetProviderAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret-key")

	assert.Equal(t, "secret-key", GetProviderAPIKey("gemini"))
	assert.Empty(t, GetProviderAPIKey("unknown-provider"))
}
