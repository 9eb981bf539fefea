package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

// ProviderConfig selects the LLM backend.
type ProviderConfig struct {
	Type    string `toml:"type"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url,omitempty"`
}

// AgentConfig configures the external agent webhook.
type AgentConfig struct {
	URL         string `toml:"url"`
	MaxRetries  int    `toml:"max_retries"`
	BaseDelayMs int    `toml:"base_delay_ms"`
}

// ChatConfig configures the conversation orchestrator.
type ChatConfig struct {
	Mode              string `toml:"mode"`
	MaxToolRounds     int    `toml:"max_tool_rounds"`
	ResumeLastSession bool   `toml:"resume_last_session"`
}

type DatabaseConfig struct {
	Path string `toml:"path,omitempty"`
}

type CredentialsConfig struct {
	Method     string `toml:"method"`
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

type UserConfig struct {
	Provider    ProviderConfig    `toml:"provider"`
	Agent       AgentConfig       `toml:"agent"`
	Chat        ChatConfig        `toml:"chat"`
	Database    DatabaseConfig    `toml:"database"`
	Credentials CredentialsConfig `toml:"credentials"`
}

type Config struct {
	DataDirectory   string
	Provider        ProviderConfig
	Agent           AgentConfig
	Chat            ChatConfig
	Database        DatabaseConfig
	Credentials     CredentialsConfig
	CredentialStore *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

// apiKeyEnv maps provider ids to the environment variables that override
// stored credentials.
var apiKeyEnv = map[string]string{
	"gemini":     "GEMINI_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// DatabasePath returns the SQLite file, defaulting to <data_dir>/fieldreport.db.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return ExpandPath(c.Database.Path)
	}
	return filepath.Join(c.DataDir(), "fieldreport.db")
}

func (c *Config) AgentBaseDelay() time.Duration {
	return time.Duration(c.Agent.BaseDelayMs) * time.Millisecond
}

// APIKey returns the credential for a provider. Environment variables win
// over the credential store.
func (c *Config) APIKey(providerID string) string {
	if env, ok := apiKeyEnv[providerID]; ok {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	if c.CredentialStore != nil {
		return c.CredentialStore.Get(providerID)
	}
	return ""
}

func (c *Config) applyUserConfig(u *UserConfig) {
	c.Provider = u.Provider
	c.Agent = u.Agent
	c.Chat = u.Chat
	c.Database = u.Database
	c.Credentials = u.Credentials
}

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("FIELDREPORT_PROVIDER"); p != "" {
		c.Provider.Type = strings.ToLower(p)
	}
	if m := os.Getenv("FIELDREPORT_MODEL"); m != "" {
		c.Provider.Model = m
	}
	if u := os.Getenv("FIELDREPORT_AGENT_URL"); u != "" {
		c.Agent.URL = u
	}
	if mode := os.Getenv("FIELDREPORT_MODE"); mode != "" {
		c.Chat.Mode = mode
	}
	if dataDir := os.Getenv("FIELDREPORT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

func (c *Config) applyFallbacks() {
	d := DefaultUserConfig()
	if c.Provider.Type == "" {
		c.Provider.Type = d.Provider.Type
	}
	if c.Agent.MaxRetries < 0 {
		c.Agent.MaxRetries = 0
	}
	if c.Agent.BaseDelayMs <= 0 {
		c.Agent.BaseDelayMs = d.Agent.BaseDelayMs
	}
	if c.Chat.MaxToolRounds <= 0 {
		c.Chat.MaxToolRounds = d.Chat.MaxToolRounds
	}
	if c.Chat.Mode == "" {
		c.Chat.Mode = d.Chat.Mode
	}
	if c.Credentials.Method == "" {
		c.Credentials.Method = string(SecurityPlainText)
	}
}

func CheckDebug() bool {
	debug := os.Getenv("FIELDREPORT_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: the log may contain prompts and database rows
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (FIELDREPORT_DEBUG=%s) ===", os.Getenv("FIELDREPORT_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Load reads the system settings, the user config in the data directory and
// the environment overrides, in that order, then opens the credential store.
func Load() (*Config, error) {
	cfg := &Config{DataDirectory: GetDefaultDataDir()}

	if dataDir := os.Getenv("FIELDREPORT_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	} else {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		cfg.DataDirectory = systemCfg.DataDirectory
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()
	cfg.applyFallbacks()

	store := NewCredentialStore(SecurityMethod(cfg.Credentials.Method), ExpandPath(cfg.Credentials.SSHKeyPath))
	if err := store.Load(cfg.DataDir()); err != nil {
		// Env keys may still cover every provider; don't refuse to start.
		if DebugLog != nil {
			DebugLog.Printf("[Config] Warning: failed to load credentials: %v", err)
		}
	}
	cfg.CredentialStore = store

	return cfg, nil
}
