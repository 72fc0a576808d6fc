package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.Entry.Departments, 10)
	assert.Equal(t, []string{"Core", "Project"}, cfg.Entry.Types)
	assert.Equal(t, 200.0, cfg.Entry.MaxHours)
	assert.Equal(t, 1000, cfg.Entry.MaxDescription)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Entry.MinTaskDate())
	assert.Equal(t, DuplicateRedirect, cfg.Rating.OnDuplicate)
	assert.True(t, cfg.Rating.InRange(1))
	assert.True(t, cfg.Rating.InRange(10))
	assert.False(t, cfg.Rating.InRange(0))
	assert.False(t, cfg.Rating.InRange(11))
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	cases := map[string]func(c *Config){
		"no departments":   func(c *Config) { c.Entry.Departments = nil },
		"blank type":       func(c *Config) { c.Entry.Types = []string{"Core", " "} },
		"zero hours":       func(c *Config) { c.Entry.MaxHours = 0 },
		"bad min date":     func(c *Config) { c.Entry.MinDate = "01/01/2020" },
		"inverted range":   func(c *Config) { c.Rating.Min, c.Rating.Max = 5, 1 },
		"unknown policy":   func(c *Config) { c.Rating.OnDuplicate = "ignore" },
		"blank admin":      func(c *Config) { c.Admins = []string{""} },
		"zero description": func(c *Config) { c.Entry.MaxDescription = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadPrefersYAMLThenTOML(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	tomlDoc := `admins = ["lead@example.com"]

[entry]
departments = ["Technology"]
types = ["Core"]
max_deal_name = 50
max_hours = 24
max_description = 200
min_date = "2020-01-01"

[rating]
min = 1
max = 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "effortline.toml"), []byte(tomlDoc), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 24.0, cfg.Entry.MaxHours)
	assert.Equal(t, 5, cfg.Rating.Max)
	assert.Equal(t, DuplicateRedirect, cfg.Rating.OnDuplicate)
	assert.Equal(t, []string{"lead@example.com"}, cfg.Admins)

	require.NoError(t, os.WriteFile(Path(dir), []byte(GenerateDefault()), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 200.0, cfg.Entry.MaxHours)
}

func TestFromYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := FromYAML([]byte("entry:\n  colour: red\n"))
	assert.Error(t, err)
}
