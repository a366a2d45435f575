package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactedString(t *testing.T) {
	originalString := "some-secret-value"

	redactedString := RedactedString(originalString)

	assert.Equal(t, "<redacted-17-chars>", redactedString.String())

	result, err := redactedString.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "<redacted-17-chars>", string(result))

	result, err = redactedString.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "\"<redacted-17-chars>\"", string(result))

	result, err = redactedString.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, "<redacted-17-chars>", string(result))

	object := map[string]any{
		"secret": redactedString,
	}
	result, err = json.Marshal(object)
	require.NoError(t, err)
	assert.Equal(t, "{\"secret\":\"\\u003credacted-17-chars\\u003e\"}", string(result))
}

func TestRedactedStringInConfigDump(t *testing.T) {
	config := CredentialsConfig{
		AccessTokenCookieName: "access_token",
		Encryption:            TokenEncryptionConfig{Enabled: true, SecretKey: "1b195c6329ba7df1c1adf6975c71910d"},
	}

	raw, err := config.Encryption.SecretKey.MarshalJSON()
	require.NoError(t, err)
	var decoded string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "<redacted-32-chars>", decoded)

	dump, err := json.Marshal(config)
	require.NoError(t, err)
	assert.NotContains(t, string(dump), "1b195c6329ba7df1c1adf6975c71910d")
}
