package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Europe/Rome")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.SideEffectTimeout)
	assert.Equal(t, "Europe/Rome", cfg.Location.String())
	assert.False(t, cfg.CalendarEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "3s")
	t.Setenv("GOOGLE_CALENDAR_ID", "trainer@group.calendar.google.com")
	t.Setenv("GOOGLE_CREDENTIALS_FILE", "/etc/trainer/sa.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.SideEffectTimeout)
	assert.True(t, cfg.CalendarEnabled())
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}
