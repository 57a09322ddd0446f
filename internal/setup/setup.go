// Package setup registers the standalone server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key the server is registered under.
const ServerName = "radreport"

// ClientConfig is the desktop client's configuration file. Keys other than
// mcpServers are preserved.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// ServerEntry launches one MCP server.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// UnmarshalJSON keeps unknown top-level keys.
func (c *ClientConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.MCPServers = map[string]ServerEntry{}
	if servers, ok := raw["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &c.MCPServers); err != nil {
			return fmt.Errorf("mcpServers: %w", err)
		}
		delete(raw, "mcpServers")
	}
	c.extra = raw
	return nil
}

// MarshalJSON writes mcpServers alongside the preserved keys.
func (c *ClientConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.extra)+1)
	for k, v := range c.extra {
		out[k] = v
	}
	out["mcpServers"] = c.MCPServers
	return json.Marshal(out)
}

// Options control registration.
type Options struct {
	// ConfigPath overrides the platform default client config location.
	ConfigPath string
	BinaryPath string
	DataDir    string
	UserID     string
	// Provider selects which API key variable is forwarded.
	Provider string
}

// DefaultConfigPath returns the desktop client's config file for this OS.
func DefaultConfigPath() (string, error) {
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

// Load reads the client config; a missing file yields an empty config.
func Load(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ClientConfig{MCPServers: map[string]ServerEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Save writes the client config, creating its directory.
func Save(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Register adds or replaces the server entry and returns the config path.
func Register(opts Options) (string, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}

	binary := opts.BinaryPath
	if binary == "" {
		if binary, err = findBinary(); err != nil {
			return "", err
		}
	}

	entry := ServerEntry{Command: binary, Env: map[string]string{}}
	if opts.DataDir != "" {
		entry.Env["RADREPORT_DATA_DIR"] = opts.DataDir
	}
	if opts.UserID != "" {
		entry.Env["RADREPORT_USER"] = opts.UserID
	}
	if opts.Provider != "" {
		entry.Env["RADREPORT_LLM_PROVIDER"] = opts.Provider
		key := "OPENAI_API_KEY"
		if opts.Provider == "anthropic" {
			key = "ANTHROPIC_API_KEY"
		}
		if v := os.Getenv(key); v != "" {
			entry.Env[key] = v
		}
	}

	cfg.MCPServers[ServerName] = entry
	if err := Save(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// Status describes the current registration.
type Status struct {
	ConfigPath string
	Registered bool
	Entry      ServerEntry
	Issues     []string
}

// Check inspects the registration at path, or the default location.
func Check(path string) (*Status, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	st := &Status{ConfigPath: path, Issues: []string{}}
	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		st.Issues = append(st.Issues, "server is not registered")
		return st, nil
	}
	st.Registered = true
	st.Entry = entry

	if info, err := os.Stat(entry.Command); err != nil {
		st.Issues = append(st.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	} else if info.Mode()&0111 == 0 {
		st.Issues = append(st.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	return st, nil
}

func findBinary() (string, error) {
	const name = "mcp-server-lite"
	if exe, err := os.Executable(); err == nil && filepath.Base(exe) == name {
		return exe, nil
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("binary %q not found; pass --binary", name)
}
