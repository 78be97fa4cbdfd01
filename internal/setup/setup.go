// Package setup registers the lite MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/flare-risk-server/internal/config"
)

const (
	// ServerName is the key under mcpServers in the client config.
	ServerName = "flare-risk"
	// BinaryName is the lite server executable.
	BinaryName = "mcp-server-lite"

	dataDirEnv = "FLARE_DATA_DIR"
)

// ClientConfig represents a desktop MCP client configuration file.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
}

// ServerEntry represents a single MCP server configuration.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for Configure.
type Options struct {
	ConfigPath string // client config file; the platform default when empty
	BinaryPath string // server binary; searched for when empty
	DataDir    string // data directory passed as FLARE_DATA_DIR
}

// ClientConfigPath returns the platform path of the desktop client config.
func ClientConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig loads path. A missing file yields an empty config.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClientConfig{MCPServers: make(map[string]ServerEntry)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]ServerEntry)
	}
	return &cfg, nil
}

// SaveClientConfig writes cfg to path, creating the directory if needed.
func SaveClientConfig(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Configure adds or replaces the flare-risk entry in the client config and
// returns the path written. Other servers in the file are left untouched.
func Configure(opts Options) (string, error) {
	path := opts.ConfigPath
	if path == "" {
		var err error
		if path, err = ClientConfigPath(); err != nil {
			return "", err
		}
	}

	cfg, err := LoadClientConfig(path)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		if binaryPath, err = findBinary(); err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := ServerEntry{Command: binaryPath}
	if opts.DataDir != "" {
		entry.Env = map[string]string{dataDirEnv: opts.DataDir}
	}
	cfg.MCPServers[ServerName] = entry

	if err := SaveClientConfig(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// findBinary looks for the lite server on PATH and in common locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		"./" + BinaryName,
		"./build/" + BinaryName,
		filepath.Join(home, ".local", "bin", BinaryName),
		"/usr/local/bin/" + BinaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", BinaryName)
}

// Status represents the current setup status.
type Status struct {
	ConfigPath string   `json:"config_path"`
	Configured bool     `json:"configured"`
	ServerPath string   `json:"server_path,omitempty"`
	DataDir    string   `json:"data_dir"`
	Issues     []string `json:"issues"`
}

// GetStatus inspects the client config at configPath (the platform default
// when empty) and the data directory the server would use.
func GetStatus(configPath string) (*Status, error) {
	if configPath == "" {
		var err error
		if configPath, err = ClientConfigPath(); err != nil {
			return nil, err
		}
	}
	status := &Status{ConfigPath: configPath, Issues: []string{}}

	cfg, err := LoadClientConfig(configPath)
	if err != nil {
		return nil, err
	}

	if entry, ok := cfg.MCPServers[ServerName]; ok {
		status.Configured = true
		status.ServerPath = entry.Command
		status.DataDir = entry.Env[dataDirEnv]
		if _, err := os.Stat(entry.Command); os.IsNotExist(err) {
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", entry.Command))
		}
	} else {
		status.Issues = append(status.Issues, fmt.Sprintf("%s is not registered in %s", ServerName, configPath))
	}

	if status.DataDir == "" {
		status.DataDir = config.DefaultLiteConfig().DataDir
	}
	if _, err := os.Stat(status.DataDir); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Data directory will be created on first run: %s", status.DataDir))
	}

	return status, nil
}
