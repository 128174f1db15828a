package resilience_test

import (
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/provider/resilience"
)

func newRegisteredClient(t *testing.T, registry *resilience.Registry, name string) *resilience.Client {
	t.Helper()
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	client := newRegisteredClient(t, registry, "osrm")

	assert.Equal(t, 1, registry.ProviderCount())
	assert.Equal(t, "osrm", client.Name())

	health := registry.GetHealth("osrm")
	require.NotNil(t, health)
	assert.Equal(t, "osrm", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.False(t, health.IsDegraded())
	assert.False(t, health.IsUnhealthy())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegisteredClient(t, registry, "osrm")

	assert.Equal(t, 1, registry.ProviderCount())

	registry.Unregister("osrm")

	assert.Equal(t, 0, registry.ProviderCount())
	assert.Nil(t, registry.GetHealth("osrm"))
}

func TestRegistry_RecordSuccess(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegisteredClient(t, registry, "osrm")

	health := registry.GetHealth("osrm")
	require.NotNil(t, health)
	assert.Nil(t, health.LastSuccessAt)

	registry.RecordSuccess("osrm")

	health = registry.GetHealth("osrm")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
}

func TestRegistry_RecordFailure(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegisteredClient(t, registry, "nominatim")

	health := registry.GetHealth("nominatim")
	require.NotNil(t, health)
	assert.Nil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)

	registry.RecordFailure("nominatim", assert.AnError)

	health = registry.GetHealth("nominatim")
	require.NotNil(t, health)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)
}

func TestRegistry_GetAllHealth_SortedByName(t *testing.T) {
	registry := resilience.NewRegistry()

	// Register out of order to exercise the sort.
	for _, name := range []string{"osrm", "campus-directory", "nominatim"} {
		newRegisteredClient(t, registry, name)
	}

	healthList := registry.GetAllHealth()
	require.Len(t, healthList, 3)

	assert.Equal(t, "campus-directory", healthList[0].Name)
	assert.Equal(t, "nominatim", healthList[1].Name)
	assert.Equal(t, "osrm", healthList[2].Name)

	for _, h := range healthList {
		assert.Equal(t, gobreaker.StateClosed, h.CircuitState)
	}
}

func TestRegistry_GetHealth_NotRegistered(t *testing.T) {
	registry := resilience.NewRegistry()
	assert.Nil(t, registry.GetHealth("nonexistent"))
}

func TestRegistry_RecordForUnknownProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	// Recording against an unknown name is a no-op, not a panic.
	registry.RecordSuccess("nonexistent")
	registry.RecordFailure("nonexistent", assert.AnError)

	assert.Equal(t, 0, registry.ProviderCount())
}

func TestProviderHealth_States(t *testing.T) {
	tests := []struct {
		state      gobreaker.State
		isHealthy  bool
		isDegraded bool
		isUnhealth bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.isHealthy, h.IsHealthy())
			assert.Equal(t, tt.isDegraded, h.IsDegraded())
			assert.Equal(t, tt.isUnhealth, h.IsUnhealthy())
		})
	}
}
