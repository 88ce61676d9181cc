package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnvelope(t *testing.T) *Envelope {
	t.Helper()
	envelope, err := NewEnvelope("test-master-secret")
	require.NoError(t, err)
	return envelope
}

// corruptSegment flips the first byte of one decoded segment and re-encodes
// it, keeping the envelope shape valid.
func corruptSegment(t *testing.T, sealed string, index int) string {
	t.Helper()

	segments := strings.Split(sealed, separator)
	require.Len(t, segments, 4)

	raw, err := base64.StdEncoding.DecodeString(segments[index])
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	raw[0] ^= 0xff
	segments[index] = base64.StdEncoding.EncodeToString(raw)
	return strings.Join(segments, separator)
}

func TestNewEnvelope_EmptyMasterSecret(t *testing.T) {
	envelope, err := NewEnvelope("")
	require.Error(t, err)
	assert.Nil(t, envelope)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	envelope := newEnvelope(t)

	plaintexts := []string{
		"",
		"ya29.a0AfH6SMB-short-lived-access-token",
		"1//0gRefreshTokenWithSlashes/and+plus=chars",
		"unicode: пароль 密码 🔑",
		strings.Repeat("x", 4096),
	}

	for _, plaintext := range plaintexts {
		sealed, err := envelope.Encrypt(plaintext)
		require.NoError(t, err)

		opened, err := envelope.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestEnvelope_EncryptProducesDistinctEnvelopes(t *testing.T) {
	envelope := newEnvelope(t)

	first, err := envelope.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := envelope.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEnvelope_EnvelopeShape(t *testing.T) {
	envelope := newEnvelope(t)

	sealed, err := envelope.Encrypt("secret")
	require.NoError(t, err)

	segments := strings.Split(sealed, separator)
	require.Len(t, segments, 4)

	salt, err := base64.StdEncoding.DecodeString(segments[0])
	require.NoError(t, err)
	assert.Len(t, salt, saltSize)

	iv, err := base64.StdEncoding.DecodeString(segments[1])
	require.NoError(t, err)
	assert.Len(t, iv, ivSize)

	tag, err := base64.StdEncoding.DecodeString(segments[2])
	require.NoError(t, err)
	assert.Len(t, tag, tagSize)

	assert.NotContains(t, sealed, "secret")
}

func TestEnvelope_Decrypt_TamperedSegments(t *testing.T) {
	envelope := newEnvelope(t)

	sealed, err := envelope.Encrypt("tamper target")
	require.NoError(t, err)

	tests := []struct {
		name  string
		index int
	}{
		{name: "salt", index: 0},
		{name: "iv", index: 1},
		{name: "tag", index: 2},
		{name: "ciphertext", index: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corrupted := corruptSegment(t, sealed, tt.index)

			opened, err := envelope.Decrypt(corrupted)
			require.ErrorIs(t, err, ErrIntegrity)
			assert.Empty(t, opened)
		})
	}
}

func TestEnvelope_Decrypt_Malformed(t *testing.T) {
	envelope := newEnvelope(t)

	sealed, err := envelope.Encrypt("shape target")
	require.NoError(t, err)
	segments := strings.Split(sealed, separator)

	tests := []struct {
		name     string
		envelope string
	}{
		{name: "empty", envelope: ""},
		{name: "three segments", envelope: strings.Join(segments[:3], separator)},
		{name: "five segments", envelope: sealed + separator + segments[3]},
		{name: "invalid base64", envelope: "!!!:" + segments[1] + separator + segments[2] + separator + segments[3]},
		{name: "short salt", envelope: base64.StdEncoding.EncodeToString([]byte("short")) + separator + strings.Join(segments[1:], separator)},
		{name: "short iv", envelope: segments[0] + separator + base64.StdEncoding.EncodeToString([]byte("short")) + separator + segments[2] + separator + segments[3]},
		{name: "short tag", envelope: segments[0] + separator + segments[1] + separator + base64.StdEncoding.EncodeToString([]byte("short")) + separator + segments[3]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened, err := envelope.Decrypt(tt.envelope)
			require.ErrorIs(t, err, ErrMalformedEnvelope)
			assert.Empty(t, opened)
		})
	}
}

func TestEnvelope_Decrypt_WrongMasterSecret(t *testing.T) {
	envelope := newEnvelope(t)
	other, err := NewEnvelope("a-different-master-secret")
	require.NoError(t, err)

	sealed, err := envelope.Encrypt("sealed under the first secret")
	require.NoError(t, err)

	opened, err := other.Decrypt(sealed)
	require.ErrorIs(t, err, ErrIntegrity)
	assert.Empty(t, opened)
}
