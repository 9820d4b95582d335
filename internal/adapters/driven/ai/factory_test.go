package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/core/domain"
)

func TestCreateOracle(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.OracleSettings
		wantNil   bool
		wantModel string
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "disabled returns nil", settings: &domain.OracleSettings{}, wantNil: true},
		{name: "unknown provider returns nil", settings: &domain.OracleSettings{Provider: "gpt"}, wantNil: true},
		{
			name:     "anthropic without key returns nil",
			settings: &domain.OracleSettings{Provider: domain.AIProviderAnthropic},
			wantNil:  true,
		},
		{
			name:      "ollama",
			settings:  &domain.OracleSettings{Provider: domain.AIProviderOllama, Model: "llama3.2", TimeoutSeconds: 30},
			wantModel: "llama3.2",
		},
		{
			name: "anthropic",
			settings: &domain.OracleSettings{
				Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-sonnet-4-20250514",
			},
			wantModel: "claude-sonnet-4-20250514",
		},
		{
			name:      "openai",
			settings:  &domain.OracleSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
			wantModel: "gpt-4o-mini",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle, err := CreateOracle(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, oracle)
				return
			}
			require.NotNil(t, oracle)
			assert.Equal(t, tt.wantModel, oracle.ModelName())
		})
	}
}

func TestCreateAndValidateOracle(t *testing.T) {
	t.Run("unconfigured returns nil without error", func(t *testing.T) {
		oracle, err := CreateAndValidateOracle(&domain.OracleSettings{})
		assert.NoError(t, err)
		assert.Nil(t, oracle)
	})

	t.Run("reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"models":[]}`))
		}))
		defer srv.Close()

		oracle, err := CreateAndValidateOracle(&domain.OracleSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
		require.NoError(t, err)
		require.NotNil(t, oracle)
		assert.NoError(t, oracle.Close())
	})

	t.Run("unreachable wraps ErrOracleUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		oracle, err := CreateAndValidateOracle(&domain.OracleSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
		assert.Nil(t, oracle)
		assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
		assert.Contains(t, err.Error(), "canon settings")
	})
}
