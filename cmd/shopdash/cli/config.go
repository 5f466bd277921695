package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	configDir  = ".shopdash"
	configFile = "config.json"

	// DefaultServer is used when nothing else names the API.
	DefaultServer = "http://localhost:5000/api"

	serverEnv = "SHOPDASH_API_URL"
)

// Config holds CLI configuration persisted to disk.
type Config struct {
	Server string `json:"server"`
}

func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// SaveConfig persists CLI config to ~/.shopdash/config.json.
func SaveConfig(cfg Config) error {
	dir, err := configDirPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	path := filepath.Join(dir, configFile)
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// LoadConfig reads CLI config from ~/.shopdash/config.json.
func LoadConfig() (Config, error) {
	dir, err := configDirPath()
	if err != nil {
		return Config{}, err
	}

	path := filepath.Join(dir, configFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil // no config yet, that's fine
		}
		return Config{}, fmt.Errorf("cannot read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("corrupt config file: %w", err)
	}
	return cfg, nil
}

// resolveServer picks the API base URL: flag, then environment, then config
// file, then DefaultServer.
func resolveServer(flag string) (string, error) {
	if flag != "" {
		return strings.TrimRight(flag, "/"), nil
	}
	if env := os.Getenv(serverEnv); env != "" {
		return strings.TrimRight(env, "/"), nil
	}
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Server != "" {
		return strings.TrimRight(cfg.Server, "/"), nil
	}
	return DefaultServer, nil
}

// validateServer rejects anything that is not an absolute http(s) URL.
func validateServer(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server URL",
	Short: "Store the default API base URL",
	Long: `Store the API base URL in ~/.shopdash/config.json. The URL includes
the /api prefix.

Examples:
  shopdash config set-server http://localhost:5000/api
  shopdash config set-server https://analytics.example.com/api`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		server := strings.TrimRight(args[0], "/")
		if err := validateServer(server); err != nil {
			return err
		}
		if err := SaveConfig(Config{Server: server}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server set to %s\n", server)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the API base URL the CLI will use",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := resolveServer(serverFlag)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), server)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetServerCmd)
	configCmd.AddCommand(configShowCmd)
}
