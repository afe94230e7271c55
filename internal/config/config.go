package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	ExamplesDir string `mapstructure:"examples_dir" yaml:"examples_dir"`
	// Upload and preview limits
	MaxUploadMB int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	PreviewRows int `mapstructure:"preview_rows" yaml:"preview_rows"`
	CacheSize   int `mapstructure:"cache_size" yaml:"cache_size"`
	// Extra missing-value spellings applied at ingestion, e.g. "?"
	NAValues []string `mapstructure:"na_values" yaml:"na_values"`

	// Estimator
	Seed      uint64 `mapstructure:"seed" yaml:"seed"`
	Neighbors int    `mapstructure:"neighbors" yaml:"neighbors"`

	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	EnableMetrics bool   `mapstructure:"enable_metrics" yaml:"enable_metrics"`
	EnableCORS    bool   `mapstructure:"enable_cors" yaml:"enable_cors"`
}

// Addr joins host and port for net.Listen.
func (c *Global) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Dir returns ~/.automateda.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".automateda"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.automateda/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() *Global {
	return &Global{
		Host:          "127.0.0.1",
		Port:          8501,
		ExamplesDir:   "Example Datasets",
		MaxUploadMB:   200,
		PreviewRows:   10,
		CacheSize:     32,
		NAValues:      []string{},
		Neighbors:     3,
		LogLevel:      "info",
		EnableMetrics: true,
	}
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including a .env file in the working directory) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AUTOMATEDA")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("examples_dir", d.ExamplesDir)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("na_values", d.NAValues)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("neighbors", d.Neighbors)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("enable_metrics", d.EnableMetrics)
	v.SetDefault("enable_cors", d.EnableCORS)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// The file is optional, but an explicit one that exists must parse.
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
