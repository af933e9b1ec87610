// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2017-2023 The Spacemesh developers

package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/DebRC/Vortex-Layer-1.5/gateway"
	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/service"
	"github.com/DebRC/Vortex-Layer-1.5/verifier"
)

const (
	defaultDbDirName      = "db"
	defaultLogDirname     = "logs"
	defaultEnvFile        = ".env"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10
)

// Config defines the configuration options for the validator.
//
// Values are taken, in increasing order of precedence, from the defaults,
// the ini config file, the environment (including the .env file) and the
// command line.
type Config struct {
	Dir            string  `long:"dir"            description:"The base directory that contains the validator's data, logs, configuration file, etc."`
	ConfigFile     string  `long:"configfile"     description:"Path to configuration file"                                                               short:"c"`
	EnvFile        string  `long:"envfile"        description:"Path to a .env file with environment variables"`
	DbDir          string  `long:"dbdir"          description:"The directory to store DBs within"`
	LogDir         string  `long:"logdir"         description:"Directory to log output."`
	DebugLog       bool    `long:"debuglog"       description:"Enable debug logs"`
	JSONLog        bool    `long:"jsonlog"        description:"Whether to log in JSON format"`
	MaxLogFiles    int     `long:"maxlogfiles"    description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int     `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	MetricsPort    *uint16 `long:"metrics-port"   description:"The port to expose metrics"`

	CPUProfile string `long:"cpuprofile" description:"Write CPU profile to the specified file"`
	Profile    string `long:"profile"    description:"Enable HTTP profiling on given port -- must be between 1024 and 65535"`

	Ledger   gateway.Config  `group:"Ledger"`
	Verifier verifier.Config `group:"Verifier"`
	Service  service.Config  `group:"Service"`
}

// DefaultConfig returns a config with default hardcoded values.
func DefaultConfig() *Config {
	dir := "./vortex"
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		dir = filepath.Join(cacheDir, "vortex")
	}

	return &Config{
		Dir:            dir,
		EnvFile:        defaultEnvFile,
		DbDir:          filepath.Join(dir, defaultDbDirName),
		LogDir:         filepath.Join(dir, defaultLogDirname),
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		Ledger:         gateway.DefaultConfig(),
		Verifier:       verifier.DefaultConfig(),
		Service:        service.DefaultConfig(),
	}
}

// LogFile returns the rotated log file configuration.
func (c *Config) LogFile() logging.FileConfig {
	return logging.FileConfig{
		Path:       filepath.Join(c.LogDir, "validator.log"),
		MaxSizeMB:  c.MaxLogFileSize,
		MaxBackups: c.MaxLogFiles,
	}
}

// ParseFlags reads values from command line arguments.
func ParseFlags(preCfg *Config) (*Config, error) {
	if _, err := flags.Parse(preCfg); err != nil {
		return nil, err
	}
	return preCfg, nil
}

// LoadEnvFile exports the variables of the .env file that are not already set.
// A missing file is not an error.
func LoadEnvFile(cfg *Config) error {
	if cfg.EnvFile == "" {
		return nil
	}
	err := godotenv.Load(cfg.EnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load environment from %v: %w", cfg.EnvFile, err)
	}
	return nil
}

// ReadConfigFile reads config from an ini file.
// It uses the provided `cfg` as a base config and overrides it with the values
// from the config file.
func ReadConfigFile(cfg *Config) (*Config, error) {
	if cfg.ConfigFile == "" {
		return cfg, nil
	}
	logging.FromContext(context.Background()).Sugar().Debugf("reading config from %s", cfg.ConfigFile)
	if err := flags.IniParse(cfg.ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %v: %w", cfg.ConfigFile, err)
	}

	return cfg, nil
}

// SetupConfig expands paths and initializes filesystem.
func SetupConfig(cfg *Config) (*Config, error) {
	// If the provided directory is not the default, we'll modify the
	// path to all of the files and directories that will live within it.
	defaultCfg := DefaultConfig()
	if cfg.Dir != defaultCfg.Dir {
		if cfg.LogDir == defaultCfg.LogDir {
			cfg.LogDir = filepath.Join(cfg.Dir, defaultLogDirname)
		}
		if cfg.DbDir == defaultCfg.DbDir {
			cfg.DbDir = filepath.Join(cfg.Dir, defaultDbDirName)
		}
	}

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", cfg.Dir, err)
	}

	cfg.DbDir = cleanAndExpandPath(cfg.DbDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.Verifier.VerificationKey = cleanAndExpandPath(cfg.Verifier.VerificationKey)

	return cfg, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		user, err := user.Current()
		if err == nil {
			homeDir = user.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
