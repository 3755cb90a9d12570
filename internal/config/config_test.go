package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricebook/internal/errors"
	"pricebook/internal/models"
)

func TestLoadWritesTemplateAndUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "config.toml"))

	assert.Equal(t, filepath.Join(dir, "pricebook.db"), cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(dir, "corporate_action"), cfg.Adjust.NoticesDir)
	assert.False(t, cfg.Adjust.AutoConfirm)
	assert.Equal(t, []models.Window{models.Window4, models.Window12, models.Window52}, cfg.RollingWindows())
	assert.False(t, cfg.Rolling.Overwrite)

	// The written template loads cleanly on the next run.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database.Path, again.Database.Path)
	assert.Equal(t, cfg.Rolling.Windows, again.Rolling.Windows)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[database]
path = "/var/lib/pricebook/prices.db"

[logging]
level = "debug"
file = false

[adjust]
notices_dir = "/srv/notices"
auto_confirm = true

[rolling]
windows = [52]
overwrite = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/pricebook/prices.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.File)
	assert.True(t, cfg.Logging.Console, "unset keys keep their defaults")
	assert.Equal(t, "/srv/notices", cfg.Adjust.NoticesDir)
	assert.True(t, cfg.Adjust.AutoConfirm)
	assert.Equal(t, []models.Window{models.Window52}, cfg.RollingWindows())
	assert.True(t, cfg.Rolling.Overwrite)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PRICEBOOK_DB_PATH", "/tmp/override.db")
	t.Setenv("PRICEBOOK_LOG_LEVEL", "warn")
	t.Setenv("PRICEBOOK_NOTICES_DIR", "/tmp/notices")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/notices", cfg.Adjust.NoticesDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad window", "[rolling]\nwindows = [4, 26]\n"},
		{"bad level", "[logging]\nlevel = \"loud\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(tt.content), 0644))

			_, err := Load(dir)
			assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[database\npath = "), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Path: "x.db"},
		Logging:  LoggingConfig{Level: "error"},
		Rolling:  RollingConfig{Windows: []int{4, 12, 52}},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Rolling.Windows = []int{4, 26}
	err := cfg.Validate()
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rolling.windows", verr.Field)
	assert.Equal(t, 26, verr.Value)

	cfg.Rolling.Windows = []int{4}
	cfg.Database.Path = ""
	err = cfg.Validate()
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "database.path", verr.Field)
}

func TestLogConfig(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug", Console: true, FilePath: "/tmp/x.log", MaxSize: 5}}
	lc := cfg.LogConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.True(t, lc.Console)
	assert.False(t, lc.File)
	assert.Equal(t, "/tmp/x.log", lc.FilePath)
	assert.Equal(t, 5, lc.MaxSize)
}
