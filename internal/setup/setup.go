// Package setup registers the lite MCP server with a desktop MCP client and
// reports the state of its data directory.
package setup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/posbindu-risk-engine/internal/config"
	"github.com/posbindu-risk-engine/internal/store"
)

// ServerName is the key under which the engine is registered.
const ServerName = "posbindu-risk-engine"

// ClientConfig is the desktop client configuration file. Unknown top-level
// keys are preserved.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	other      map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server entry.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls Register.
type Options struct {
	ConfigPath string
	BinaryPath string
	DataDir    string
	LogLevel   string
}

// DefaultClientConfigPath returns the desktop client's config file location.
func DefaultClientConfigPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "Claude", "claude_desktop_config.json"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// LoadClientConfig reads the client configuration. A missing file yields an
// empty configuration.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{MCPServers: map[string]MCPServerConfig{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.other, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]MCPServerConfig{}
	}
	return cfg, nil
}

// Save writes the configuration back to path.
func (c *ClientConfig) Save(path string) error {
	out := make(map[string]interface{}, len(c.other)+1)
	for k, v := range c.other {
		out[k] = v
	}
	out["mcpServers"] = c.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the engine entry in the client configuration and
// creates the data directory.
func Register(opts Options) error {
	if opts.BinaryPath == "" {
		return fmt.Errorf("binary path is required")
	}

	cfg, err := LoadClientConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	entry := MCPServerConfig{Command: opts.BinaryPath, Env: map[string]string{}}
	if opts.DataDir != "" {
		entry.Env["POSBINDU_DATA_DIR"] = opts.DataDir
	}
	if opts.LogLevel != "" {
		entry.Env["POSBINDU_LOG_LEVEL"] = opts.LogLevel
	}
	cfg.MCPServers[ServerName] = entry

	if err := cfg.Save(opts.ConfigPath); err != nil {
		return err
	}

	lite := config.DefaultLiteConfig()
	if opts.DataDir != "" {
		lite.DataDir = opts.DataDir
	}
	if err := lite.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Status is the registration and data directory state.
type Status struct {
	ConfigPath     string
	Registered     bool
	BinaryPath     string
	BinaryFound    bool
	DataDir        string
	DatabaseExists bool
	Assessments    int
	Issues         []string
}

// GetStatus inspects the client configuration at configPath and the data
// directory it points to.
func GetStatus(ctx context.Context, configPath string) (*Status, error) {
	status := &Status{ConfigPath: configPath, Issues: []string{}}

	cfg, err := LoadClientConfig(configPath)
	if err != nil {
		return nil, err
	}

	lite := config.DefaultLiteConfig()
	if entry, ok := cfg.MCPServers[ServerName]; ok {
		status.Registered = true
		status.BinaryPath = entry.Command
		if _, err := os.Stat(entry.Command); err == nil {
			status.BinaryFound = true
		} else {
			status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found: %s", entry.Command))
		}
		if dir := entry.Env["POSBINDU_DATA_DIR"]; dir != "" {
			lite.DataDir = dir
		}
	} else {
		status.Issues = append(status.Issues, "Engine is not registered with the MCP client")
	}
	status.DataDir = lite.DataDir

	if _, err := os.Stat(lite.AssessmentDBPath()); err != nil {
		return status, nil
	}
	status.DatabaseExists = true

	st, err := store.NewSQLiteStore(lite.AssessmentDBPath())
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Cannot open assessment database: %v", err))
		return status, nil
	}
	defer st.Close()

	count, err := st.Count(ctx)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Cannot count assessments: %v", err))
		return status, nil
	}
	status.Assessments = count
	return status, nil
}
