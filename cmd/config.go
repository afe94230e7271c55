package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/automateda/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set AutomatEDA configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("host: %s\n", cfg.Host)
		fmt.Printf("port: %d\n", cfg.Port)
		fmt.Printf("examples_dir: %s\n", cfg.ExamplesDir)
		fmt.Printf("max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Printf("preview_rows: %d\n", cfg.PreviewRows)
		fmt.Printf("cache_size: %d\n", cfg.CacheSize)
		if len(cfg.NAValues) > 0 {
			fmt.Printf("na_values: %s\n", strings.Join(cfg.NAValues, ","))
		}
		fmt.Printf("seed: %d\n", cfg.Seed)
		fmt.Printf("neighbors: %d\n", cfg.Neighbors)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		fmt.Printf("enable_metrics: %t\n", cfg.EnableMetrics)
		fmt.Printf("enable_cors: %t\n", cfg.EnableCORS)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "host":
			cfg.Host = val
		case "port":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 || i > 65535 {
				return fmt.Errorf("invalid port: %v", val)
			}
			cfg.Port = i
		case "examples_dir":
			cfg.ExamplesDir = val
		case "max_upload_mb", "preview_rows", "cache_size", "neighbors":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid positive int for %s: %v", key, val)
			}
			switch key {
			case "max_upload_mb":
				cfg.MaxUploadMB = i
			case "preview_rows":
				cfg.PreviewRows = i
			case "cache_size":
				cfg.CacheSize = i
			default:
				cfg.Neighbors = i
			}
		case "na_values":
			cfg.NAValues = nil
			for _, v := range strings.Split(val, ",") {
				if v = strings.TrimSpace(v); v != "" {
					cfg.NAValues = append(cfg.NAValues, v)
				}
			}
		case "seed":
			u, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid uint for seed: %w", err)
			}
			cfg.Seed = u
		case "log_level":
			switch strings.ToLower(val) {
			case "debug", "info", "warn", "error", "off":
				cfg.LogLevel = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error|off)", val)
			}
		case "enable_metrics", "enable_cors":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for %s: %w", key, err)
			}
			if key == "enable_metrics" {
				cfg.EnableMetrics = b
			} else {
				cfg.EnableCORS = b
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
