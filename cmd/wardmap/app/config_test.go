package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromArgs(t *testing.T) {
	c, err := NewConfigFromArgs("wardmap", []string{
		"-db", "wardriver.db",
		"-s", "3",
		"-o", "map",
		"-f", "JPEG",
		"-theme", "Thermal",
		"-size", "800",
		"-tz", "UTC",
		"-no-annotations",
	})
	require.NoError(t, err)

	assert.Equal(t, "wardriver.db", c.DBPath)
	assert.Equal(t, int64(3), c.SessionID)
	assert.Equal(t, "map.jpeg", c.OutputFile)
	assert.Equal(t, ImageJPEG, c.Format)
	assert.Equal(t, ThermalTheme, c.Theme)
	assert.Equal(t, 800, c.Size)
	assert.Equal(t, time.UTC, c.TimeZone)
	assert.True(t, c.NoAnnotations)
}

func TestNewConfigFromArgs_Defaults(t *testing.T) {
	c, err := NewConfigFromArgs("wardmap", []string{"-db", "wardriver.db", "-o", "map"})
	require.NoError(t, err)

	assert.Equal(t, int64(0), c.SessionID)
	assert.Equal(t, "map.png", c.OutputFile)
	assert.Equal(t, DefaultTheme, c.Theme)
	assert.Equal(t, defaultSize, c.Size)
	assert.Equal(t, time.Local, c.TimeZone)
}

func TestNewConfigFromArgs_Errors(t *testing.T) {
	tests := map[string][]string{
		"missing db":     {"-o", "map"},
		"missing output": {"-db", "wardriver.db"},
		"negative id":    {"-db", "wardriver.db", "-o", "map", "-s", "-1"},
		"bad format":     {"-db", "wardriver.db", "-o", "map", "-f", "gif"},
		"bad theme":      {"-db", "wardriver.db", "-o", "map", "-theme", "neon"},
		"small size":     {"-db", "wardriver.db", "-o", "map", "-size", "10"},
		"bad time zone":  {"-db", "wardriver.db", "-o", "map", "-tz", "Nowhere/Special"},
		"unknown flag":   {"-db", "wardriver.db", "-o", "map", "-x"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfigFromArgs("wardmap", args)
			assert.Error(t, err)
		})
	}
}
