package constants

const (
	AppName           = "trendlit"
	DefaultConfigPath = "~/.config/trendlit/trendlit.db"
	DefaultConfigFile = "~/.config/trendlit/config.json"
	Version           = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Keyring entries
	KeyringUserConnection = "database-connection"
	KeyringUserAPIKey     = "llm-api-key"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "trendlit-"
	BackupFileSuffix = ".db"

	// Log file settings
	LogDirName    = "logs"
	LogFileName   = "trendlit.log"
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28
)
