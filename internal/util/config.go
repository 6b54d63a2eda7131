package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable consulted when no -config flag is
// given.
const ConfigEnv = "BIS_CONFIG"

var ErrUnknownConfigFormat = errors.New("unknown config format")

type JournalConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// Enabled reports whether runs should be recorded.
func (j JournalConfig) Enabled() bool {
	return j.DSN != ""
}

type Configuration struct {
	Version   string `yaml:"-" toml:"-"`
	BuildDate string `yaml:"-" toml:"-"`
	Commit    string `yaml:"-" toml:"-"`

	DebugAST     string        `yaml:"debug_ast" toml:"debug_ast"`
	LogLevel     string        `yaml:"log_level" toml:"log_level"`
	LogFile      string        `yaml:"log_file" toml:"log_file"`
	MaxCallDepth int           `yaml:"max_call_depth" toml:"max_call_depth"`
	HistoryFile  string        `yaml:"history_file" toml:"history_file"`
	ShowSource   bool          `yaml:"show_source" toml:"show_source"`
	Journal      JournalConfig `yaml:"journal" toml:"journal"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		LogLevel:     "none",
		MaxCallDepth: 2048,
		Journal:      JournalConfig{Driver: "sqlite3"},
	}
}

// ConfigPath returns flagValue, or the BIS_CONFIG variable when the flag is
// empty.
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(ConfigEnv)
}

// LoadFile decodes path over cfg. Fields absent from the file keep their
// current values and unknown keys are rejected. The format follows the
// extension: .yaml, .yml or .toml.
func LoadFile(path string, cfg *Configuration) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path, cfg)
	case ".toml":
		return loadTOML(path, cfg)
	default:
		return fmt.Errorf("config: %s: %w", path, ErrUnknownConfigFormat)
	}
}

func loadYAML(path string, cfg *Configuration) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func loadTOML(path string, cfg *Configuration) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config: parse %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}
