package credentials

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvKeyProvider(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		t.Setenv("TEST_KEY", strings.Repeat("ab", keyLength))

		p := NewEnvKeyProvider("TEST_KEY")
		key, err := p.GetKey()
		require.NoError(t, err)
		assert.Len(t, key, keyLength)
	})

	t.Run("unset variable", func(t *testing.T) {
		p := NewEnvKeyProvider("TEST_KEY_UNSET")
		_, err := p.GetKey()
		assert.Error(t, err)
	})

	t.Run("not hex", func(t *testing.T) {
		t.Setenv("TEST_KEY", "not-hex-at-all")

		p := NewEnvKeyProvider("TEST_KEY")
		_, err := p.GetKey()
		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv("TEST_KEY", "abcd")

		p := NewEnvKeyProvider("TEST_KEY")
		_, err := p.GetKey()
		assert.Error(t, err)
	})
}

func TestPassphraseKeyProvider(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	t.Run("deterministic for same inputs", func(t *testing.T) {
		a, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
		require.NoError(t, err)
		b, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, keyLength)
	})

	t.Run("different passphrase yields different key", func(t *testing.T) {
		a, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
		require.NoError(t, err)
		b, err := NewPassphraseKeyProvider("battery staple", salt).GetKey()
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("different salt yields different key", func(t *testing.T) {
		otherSalt, err := GenerateSalt()
		require.NoError(t, err)

		a, err := NewPassphraseKeyProvider("correct horse", salt).GetKey()
		require.NoError(t, err)
		b, err := NewPassphraseKeyProvider("correct horse", otherSalt).GetKey()
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("empty passphrase", func(t *testing.T) {
		_, err := NewPassphraseKeyProvider("", salt).GetKey()
		assert.Error(t, err)
	})

	t.Run("missing salt", func(t *testing.T) {
		_, err := NewPassphraseKeyProvider("pw", nil).GetKey()
		assert.Error(t, err)
	})
}

func TestGenerateSalt(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, hex.EncodeToString(a), hex.EncodeToString(b))
}

func TestGetDefaultKeyProvider_EnvFirst(t *testing.T) {
	t.Setenv("SCRUMLINK_ENCRYPTION_KEY", strings.Repeat("cd", keyLength))

	p, err := GetDefaultKeyProvider()
	require.NoError(t, err)
	assert.IsType(t, &EnvKeyProvider{}, p)
}
