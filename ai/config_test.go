package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, 384, cfg.Dimensions)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, 384, cfg.Dimensions)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
	})

	t.Run("with custom model", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingModel("text-embedding-3-small"))

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://custom:8080/v1"),
			WithEmbeddingModel("custom-embed"),
			WithDimensions(768),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "custom-embed", cfg.EmbeddingModel)
		assert.Equal(t, 768, cfg.Dimensions)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{
			name:     "already has /v1",
			host:     "http://localhost:11434/v1",
			expected: "http://localhost:11434/v1",
		},
		{
			name:     "missing /v1",
			host:     "http://localhost:11434",
			expected: "http://localhost:11434/v1",
		},
		{
			name:     "has trailing slash",
			host:     "http://localhost:11434/",
			expected: "http://localhost:11434/v1",
		},
		{
			name:     "empty host",
			host:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host}

			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost:  "http://localhost:11434",
			EmbeddingModel: "embeddinggemma",
			Dimensions:     384,
		}

		err := cfg.Validate()
		assert.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := &Config{
			EmbeddingModel: "embeddinggemma",
			Dimensions:     384,
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingHost")
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost: "http://localhost:11434/v1",
			Dimensions:    384,
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "EmbeddingModel")
	})

	t.Run("non-positive dimensions", func(t *testing.T) {
		cfg := &Config{
			EmbeddingHost:  "http://localhost:11434/v1",
			EmbeddingModel: "embeddinggemma",
		}

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Dimensions")
	})
}

func TestConfigValidate_Integration(t *testing.T) {
	cfg := NewConfig()
	err := cfg.Validate()
	require.NoError(t, err)

	cfg = DefaultConfig()
	err = cfg.Validate()
	require.NoError(t, err)
}
