// Package configuration assembles the daemon settings. Later sources
// override earlier ones: built-in defaults, an optional Lua file, a .env
// file, the process environment, then command line flags.
package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/joho/godotenv"

	"voting-ledger/fault"
	"voting-ledger/models"
	"voting-ledger/storage"
)

// basic defaults
const (
	defaultPort          = 5001
	defaultDataDirectory = "data"
	defaultDatabaseType  = storage.TypeJSON
	DefaultEnvFile       = ".env"

	defaultVoteRate  = 50
	defaultVoteBurst = 100
	defaultMineRate  = 1
	defaultMineBurst = 2

	defaultLogDirectory = "log"
	defaultLogFile      = "ledgerd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

type DatabaseType struct {
	Type string `gluamapper:"type" json:"type"`
	URL  string `gluamapper:"url" json:"url"`
}

type RateLimitType struct {
	VotesPerSecond float64 `gluamapper:"votes_per_second" json:"votes_per_second"`
	VoteBurst      int     `gluamapper:"vote_burst" json:"vote_burst"`
	MinesPerSecond float64 `gluamapper:"mines_per_second" json:"mines_per_second"`
	MineBurst      int     `gluamapper:"mine_burst" json:"mine_burst"`
}

type Configuration struct {
	Port                 int                  `gluamapper:"port" json:"port"`
	DataDirectory        string               `gluamapper:"data_directory" json:"data_directory"`
	Database             DatabaseType         `gluamapper:"database" json:"database"`
	AdminAPIKey          string               `gluamapper:"admin_api_key" json:"-"`
	Difficulty           int                  `gluamapper:"difficulty" json:"difficulty"`
	CredentialIterations int                  `gluamapper:"credential_iterations" json:"credential_iterations"`
	AutoMineInterval     string               `gluamapper:"auto_mine_interval" json:"auto_mine_interval"`
	RateLimit            RateLimitType        `gluamapper:"rate_limit" json:"rate_limit"`
	Logging              logger.Configuration `gluamapper:"logging" json:"logging"`
}

// Default returns the built-in settings
func Default() *Configuration {
	return &Configuration{
		Port:          defaultPort,
		DataDirectory: defaultDataDirectory,
		Database: DatabaseType{
			Type: defaultDatabaseType,
		},
		Difficulty: models.DefaultDifficulty,
		RateLimit: RateLimitType{
			VotesPerSecond: defaultVoteRate,
			VoteBurst:      defaultVoteBurst,
			MinesPerSecond: defaultMineRate,
			MineBurst:      defaultMineBurst,
		},
		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Console:   true,
			Levels: map[string]string{
				logger.DefaultTag: "info",
			},
		},
	}
}

// Load layers the configuration file (optional), the env file and the
// environment over the defaults. A missing env file is not an error.
func Load(fileName string, envFile string) (*Configuration, error) {
	options := Default()

	if fileName != "" {
		path, err := filepath.Abs(filepath.Clean(fileName))
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fault.ErrNotFoundConfigFile
		}
		if err := ParseConfigurationFile(path, options); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	if err := options.applyEnvironment(os.LookupEnv); err != nil {
		return nil, err
	}
	return options, nil
}

func (c *Configuration) applyEnvironment(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v, ok := lookup("DATA_DIRECTORY"); ok {
		c.DataDirectory = v
	}
	if v, ok := lookup("DATABASE_TYPE"); ok {
		c.Database.Type = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.Database.URL = v
	}
	if v, ok := lookup("ADMIN_API_KEY"); ok {
		c.AdminAPIKey = v
	}
	if v, ok := lookup("DIFFICULTY"); ok {
		difficulty, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DIFFICULTY: %w", err)
		}
		c.Difficulty = difficulty
	}
	if v, ok := lookup("AUTO_MINE_INTERVAL"); ok {
		c.AutoMineInterval = v
	}
	return nil
}

// Validate normalises the settings and rejects unusable ones
func (c *Configuration) Validate() error {
	if c.Difficulty < 1 || c.Difficulty > models.MaxDifficulty {
		return fault.ErrInvalidDifficulty
	}

	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	switch c.Database.Type {
	case storage.TypeJSON, storage.TypeLevelDB, storage.TypeSQLite:
	case storage.TypePostgres:
		if c.Database.URL == "" {
			return fault.ErrMissingDatabaseURL
		}
	default:
		return fault.ErrInvalidDatabaseType
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fault.ValidationError(fmt.Sprintf("port %d is out of range", c.Port))
	}

	if c.DataDirectory == "" || c.DataDirectory == "~" {
		return fault.ValidationError(fmt.Sprintf("data directory %q is not valid", c.DataDirectory))
	}
	c.DataDirectory = filepath.Clean(c.DataDirectory)

	if _, err := c.AutoMine(); err != nil {
		return err
	}

	// relative log directory lives under the data directory
	if c.Logging.Directory != "" && !filepath.IsAbs(c.Logging.Directory) {
		c.Logging.Directory = filepath.Join(c.DataDirectory, c.Logging.Directory)
	}

	// checked last so offline commands can ignore it
	c.AdminAPIKey = strings.TrimSpace(c.AdminAPIKey)
	if c.AdminAPIKey == "" {
		return fault.ErrMissingAdminKey
	}
	return nil
}

// AutoMine parses the auto-mine interval. A bare number is taken as
// seconds; zero or empty disables auto-mining.
func (c *Configuration) AutoMine() (time.Duration, error) {
	value := strings.TrimSpace(c.AutoMineInterval)
	if value == "" {
		return 0, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		value = fmt.Sprintf("%ds", seconds)
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fault.ValidationError(fmt.Sprintf("auto mine interval %q is not a valid duration", c.AutoMineInterval))
	}
	return d, nil
}

// StorageOptions selects the configured backend
func (c *Configuration) StorageOptions() storage.Options {
	return storage.Options{
		Type:      c.Database.Type,
		Directory: c.DataDirectory,
		URL:       c.Database.URL,
	}
}

func (c *Configuration) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}
