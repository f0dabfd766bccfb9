package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trademind Configuration

[user]
# Identifier that owns every rule, session and journal entry
id = "local"
# IANA time zone used to decide a session's calendar date
timezone = "Local"

[database]
# Driver: "sqlite3" or "postgres"
driver = "sqlite3"
# Connection string. Empty means trademind.db next to this file.
dsn = ""

[cache]
# Cache dashboard read models in Redis
enabled = false
addr = "localhost:6379"
password = ""
db = 0
ttl = "5m"

[server]
addr = ":8080"
dev_mode = false
request_timeout = "30s"
allowed_origins = ["*"]

[notifications]
# Post limit alerts and session summaries to a webhook
enabled = false
# "all", "alerts_only" or "summaries_only"
level = "all"
# webhook_url = "https://example.com/hooks/trademind"

[ui]
# Enable colored output
color_enabled = true
# Prefix for P&L amounts
currency_symbol = "$"
# Date format
date_format = "Jan 2, 2006"

[logging]
# debug, info, warn, error
level = "info"
console = true
file = false
# file_path = "~/.config/trademind/logs/trademind.log"
max_size = 100
max_backups = 7
max_age = 30
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
