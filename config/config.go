package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug                  = "debug"
	ConfigSolverThreads          = "solver-threads"
	ConfigMaxEggs                = "max-eggs"
	ConfigMaxFloors              = "max-floors"
	ConfigMaxTableMemoryFraction = "max-table-memory-fraction"
	ConfigMemoTables             = "memo-tables"
	ConfigNatsURL                = "nats-url"
	ConfigBotChannel             = "bot-channel"
	ConfigHistoryFile            = "history-file"
	ConfigScriptPath             = "script-path"
	ConfigCPUProfile             = "cpu-profile"
	ConfigMemProfile             = "mem-profile"
	ConfigFile                   = "config-file"
)

// Config is the configuration for all eggdrop binaries. Values come from
// flags, then EGGDROP_* environment variables, then an optional config file,
// then defaults.
type Config struct {
	viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigSolverThreads, max(1, runtime.NumCPU()-1))
	v.SetDefault(ConfigMaxEggs, 100)
	v.SetDefault(ConfigMaxFloors, 1000)
	v.SetDefault(ConfigMaxTableMemoryFraction, 0.25)
	v.SetDefault(ConfigMemoTables, 4)
	v.SetDefault(ConfigNatsURL, "nats://localhost:4222")
	v.SetDefault(ConfigBotChannel, "eggdrop.solve")
	v.SetDefault(ConfigHistoryFile, "/tmp/eggdrop-readline.tmp")
	v.SetDefault(ConfigScriptPath, "./scripts")
}

// DefaultConfig returns a config with only defaults and the environment.
func DefaultConfig() Config {
	c := Config{Viper: *viper.New()}
	setDefaults(&c.Viper)
	c.bindEnv()
	return c
}

func (c *Config) bindEnv() {
	c.SetEnvPrefix("eggdrop")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
}

// Load reads flags from args and returns the arguments that were not flags.
func (c *Config) Load(args []string) ([]string, error) {
	c.Viper = *viper.New()
	setDefaults(&c.Viper)
	c.bindEnv()

	fs := pflag.NewFlagSet("eggdrop", pflag.ContinueOnError)
	// Anything after the first non-flag is a shell command with its own options.
	fs.SetInterspersed(false)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.Int(ConfigSolverThreads, c.GetInt(ConfigSolverThreads), "goroutines used to fill a solution table")
	fs.Int(ConfigMaxEggs, c.GetInt(ConfigMaxEggs), "largest egg count accepted from callers")
	fs.Int(ConfigMaxFloors, c.GetInt(ConfigMaxFloors), "largest floor count accepted from callers")
	fs.Float64(ConfigMaxTableMemoryFraction, c.GetFloat64(ConfigMaxTableMemoryFraction),
		"largest share of system memory a single solution table may use")
	fs.Int(ConfigMemoTables, c.GetInt(ConfigMemoTables), "solution tables kept in memory; 0 keeps all")
	fs.String(ConfigNatsURL, c.GetString(ConfigNatsURL), "the NATS server URL")
	fs.String(ConfigBotChannel, c.GetString(ConfigBotChannel), "the NATS subject the solver bot listens on")
	fs.String(ConfigHistoryFile, c.GetString(ConfigHistoryFile), "shell history file")
	fs.String(ConfigScriptPath, c.GetString(ConfigScriptPath), "directory holding Lua scripts")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigMemProfile, "", "write a memory profile to this file")
	fs.String(ConfigFile, "", "optional YAML config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := c.BindPFlags(fs); err != nil {
		return nil, err
	}
	if cf := c.GetString(ConfigFile); cf != "" {
		c.SetConfigFile(cf)
		if err := c.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

func (c *Config) Validate() error {
	if c.GetInt(ConfigMaxEggs) < 1 {
		return errors.New(ConfigMaxEggs + " must be at least 1")
	}
	if c.GetInt(ConfigMaxFloors) < 1 {
		return errors.New(ConfigMaxFloors + " must be at least 1")
	}
	if c.GetInt(ConfigMemoTables) < 0 {
		return errors.New(ConfigMemoTables + " must not be negative")
	}
	f := c.GetFloat64(ConfigMaxTableMemoryFraction)
	if f < 0 || f > 1 {
		return errors.New(ConfigMaxTableMemoryFraction + " must be between 0 and 1")
	}
	return nil
}

// CheckProblem rejects problems larger than the configured limits.
func (c *Config) CheckProblem(eggs, floors int) error {
	if eggs > c.GetInt(ConfigMaxEggs) {
		return fmt.Errorf("at most %d eggs allowed, got %d", c.GetInt(ConfigMaxEggs), eggs)
	}
	if floors > c.GetInt(ConfigMaxFloors) {
		return fmt.Errorf("at most %d floors allowed, got %d", c.GetInt(ConfigMaxFloors), floors)
	}
	return nil
}

// AdjustRelativePaths makes relative paths relative to basepath, normally
// the directory holding the executable.
func (c *Config) AdjustRelativePaths(basepath string) {
	for _, key := range []string{ConfigScriptPath} {
		p := c.GetString(key)
		if p != "" && !filepath.IsAbs(p) {
			c.Set(key, filepath.Join(basepath, p))
		}
	}
}

// SanitizedSettings lists every setting for logging. The NATS URL can carry
// credentials, so it is masked.
func (c *Config) SanitizedSettings() map[string]interface{} {
	out := map[string]interface{}{}
	keys := c.AllKeys()
	sort.Strings(keys)
	for _, k := range keys {
		if k == ConfigNatsURL {
			out[k] = "*****"
			continue
		}
		out[k] = c.Get(k)
	}
	return out
}
