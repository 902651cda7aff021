package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRefreshToken(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		expected map[string]string
	}{
		{
			name:     "creates file",
			expected: map[string]string{refreshTokenKey: "new-token"},
		},
		{
			name:     "keeps other entries",
			existing: "SPOTIFY_CLIENT_ID=abc\nOPENAI_API_KEY=sk-1\n",
			expected: map[string]string{
				"SPOTIFY_CLIENT_ID": "abc",
				"OPENAI_API_KEY":    "sk-1",
				refreshTokenKey:     "new-token",
			},
		},
		{
			name:     "replaces old token",
			existing: refreshTokenKey + "=old-token\n",
			expected: map[string]string{refreshTokenKey: "new-token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".env")
			if tt.existing != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.existing), 0o600))
			}

			require.NoError(t, saveRefreshToken(path, "new-token"))

			got, err := godotenv.Read(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSaveRefreshToken_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", ".env")

	err := saveRefreshToken(path, "token")

	assert.Error(t, err)
}
