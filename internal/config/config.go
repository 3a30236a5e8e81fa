// Package config provides configuration management for the notary page splitter.
package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"notary-splitter/internal/logger"
	"notary-splitter/internal/pagesize"
	"notary-splitter/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "notary-splitter-config.json"
	// EnvOutputDir overrides the output directory
	EnvOutputDir = "NOTARY_SPLITTER_OUTPUT_DIR"
	// EnvLogLevel overrides the log level
	EnvLogLevel = "NOTARY_SPLITTER_LOG_LEVEL"
	// EnvTolerance overrides the classification tolerance in inches
	EnvTolerance = "NOTARY_SPLITTER_TOLERANCE"
	// DefaultTolerance is the allowed deviation from a page template, in inches
	DefaultTolerance = pagesize.DefaultTolerance
	// DefaultPasswordAttempts is how many times a password is requested before aborting
	DefaultPasswordAttempts = 3
	// DefaultLogFile is the diagnostics log file name
	DefaultLogFile = "notary-splitter.log"
	// DefaultLogLevel is the default diagnostics level
	DefaultLogLevel = "info"
	// DefaultEncryptKeyLength is the key length used for new protection
	DefaultEncryptKeyLength = 128
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "notary-splitter", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *types.Config {
	return defaultConfig()
}

func defaultConfig() *types.Config {
	return &types.Config{
		Tolerance:        DefaultTolerance,
		PasswordAttempts: DefaultPasswordAttempts,
		OutputDir:        "",
		LogFile:          DefaultLogFile,
		LogLevel:         DefaultLogLevel,
		LogConsole:       false,
		EncryptAES:       true,
		EncryptKeyLength: DefaultEncryptKeyLength,
		SaveFailures:     false,
	}
}

// Load loads configuration from the config file.
// If the file doesn't exist, it uses default values.
// Environment variables override file values.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		// Unset keys keep their defaults.
		config := defaultConfig()
		if err := json.Unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			logger.Info("configuration loaded successfully",
				logger.String("path", m.configPath),
				logger.Float64("tolerance", config.Tolerance),
				logger.String("outputDir", config.OutputDir))
			m.config = config
		}
	}

	m.applyEnv()
	m.applyDefaults()
	return m.Validate()
}

func (m *ConfigManager) applyEnv() {
	if dir := os.Getenv(EnvOutputDir); dir != "" {
		m.config.OutputDir = dir
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		m.config.LogLevel = level
	}
	if tol := os.Getenv(EnvTolerance); tol != "" {
		v, err := strconv.ParseFloat(tol, 64)
		if err != nil {
			logger.Warn("ignoring invalid tolerance override", logger.String("value", tol), logger.Err(err))
			return
		}
		m.config.Tolerance = v
	}
}

func (m *ConfigManager) applyDefaults() {
	if m.config.Tolerance == 0 {
		m.config.Tolerance = DefaultTolerance
	}
	if m.config.PasswordAttempts == 0 {
		m.config.PasswordAttempts = DefaultPasswordAttempts
	}
	if m.config.LogLevel == "" {
		m.config.LogLevel = DefaultLogLevel
	}
	if m.config.EncryptKeyLength == 0 {
		m.config.EncryptKeyLength = DefaultEncryptKeyLength
	}
}

// Validate checks the loaded values for consistency.
func (m *ConfigManager) Validate() error {
	c := m.GetConfig()
	if c.Tolerance < 0 || math.IsNaN(c.Tolerance) || math.IsInf(c.Tolerance, 0) {
		return types.NewAppErrorWithDetails(types.ErrConfig, "invalid tolerance", strconv.FormatFloat(c.Tolerance, 'f', -1, 64), nil)
	}
	if c.PasswordAttempts < 1 {
		return types.NewAppErrorWithDetails(types.ErrConfig, "password_attempts must be at least 1", strconv.Itoa(c.PasswordAttempts), nil)
	}
	switch c.EncryptKeyLength {
	case 40, 128, 256:
	default:
		return types.NewAppErrorWithDetails(types.ErrConfig, "encrypt_key_length must be 40, 128 or 256", strconv.Itoa(c.EncryptKeyLength), nil)
	}
	if c.EncryptKeyLength == 256 && !c.EncryptAES {
		return types.NewAppError(types.ErrConfig, "256 bit protection requires encrypt_aes", nil)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return types.NewAppError(types.ErrConfig, "invalid log_level", err)
	}
	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetTolerance returns the classification tolerance in inches.
func (m *ConfigManager) GetTolerance() float64 {
	if m.config != nil && m.config.Tolerance > 0 {
		return m.config.Tolerance
	}
	return DefaultTolerance
}

// GetPasswordAttempts returns how many password prompts are allowed per document.
func (m *ConfigManager) GetPasswordAttempts() int {
	if m.config != nil && m.config.PasswordAttempts > 0 {
		return m.config.PasswordAttempts
	}
	return DefaultPasswordAttempts
}

// GetOutputDir returns the configured output directory, or "" for next-to-input.
func (m *ConfigManager) GetOutputDir() string {
	if m.config != nil {
		return m.config.OutputDir
	}
	return ""
}

// SetOutputDir overrides the output directory for this run without saving.
func (m *ConfigManager) SetOutputDir(dir string) {
	if m.config == nil {
		m.config = defaultConfig()
	}
	m.config.OutputDir = dir
}

// LoggerConfig builds the logger configuration from the loaded values.
func (m *ConfigManager) LoggerConfig() *logger.Config {
	c := m.GetConfig()
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		level = logger.LevelInfo
	}
	lc := logger.DefaultConfig()
	lc.LogFilePath = c.LogFile
	lc.Level = level
	if c.LogConsole {
		lc.Console = os.Stderr
	}
	return lc
}
