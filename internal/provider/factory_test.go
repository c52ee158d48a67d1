package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/msg-memory/internal/config"
)

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		enabled  bool
		provider string
		want     Kind
	}{
		{false, config.ProviderGemini, KindDisabled},
		{true, config.ProviderDisabled, KindDisabled},
		{true, config.ProviderOllama, KindOllama},
		{true, config.ProviderOllamaTurbo, KindOllamaTurbo},
		{true, config.ProviderGemini, KindGemini},
	}
	for _, tt := range tests {
		cfg := config.Default()
		cfg.AI.Enabled = tt.enabled
		cfg.AI.Provider = tt.provider
		assert.Equal(t, tt.want, New(&cfg, nil).Kind(), "%v/%s", tt.enabled, tt.provider)
	}
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.True(t, IsConfigError(err))
	assert.False(t, IsRetryable(err))
	assert.NoError(t, Probe(context.Background(), Disabled{}))
}
