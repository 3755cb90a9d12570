package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# pricebook configuration

[database]
# SQLite file holding the prices and applied_actions_log tables
# path = "~/.config/pricebook/pricebook.db"

[logging]
# Level: debug, info, warn, error
level = "info"
console = true
file = true
# Rotation limits for the log file
max_size = 100
max_backups = 7
max_age = 30

[adjust]
# Directory scanned for corporate action CSV exports
# notices_dir = "~/.config/pricebook/corporate_action"
# Apply adjustments without asking (use with care: history is rewritten)
auto_confirm = false

[rolling]
# Trailing windows in weeks: any of 4, 12, 52 (empty updates all three)
windows = [4, 12, 52]
# Recompute every row instead of only filling missing values
overwrite = false
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
