package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: GetDefaultDataDir(),
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Provider: ProviderConfig{
			Type:  "gemini",
			Model: "gemini-2.5-flash",
		},
		Agent: AgentConfig{
			MaxRetries:  2,
			BaseDelayMs: 1000,
		},
		Chat: ChatConfig{
			Mode:          "direct",
			MaxToolRounds: 8,
		},
		Credentials: CredentialsConfig{
			Method: string(SecurityPlainText),
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Field Report System Configuration
# Location: ~/.config/fieldreport/settings.toml
# This file uses TOML format: https://toml.io

# Directory where the database, transcripts and user config are stored
data_directory = "~/.local/share/fieldreport"
`
}

func GenerateUserConfigTemplate() string {
	return `# Field Report User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[provider]
# LLM backend: gemini, openai, openrouter, anthropic, ollama
type = "gemini"
model = "gemini-2.5-flash"
# base_url = ""

[agent]
# External agent webhook. Leave empty to disable agent features.
url = ""
# Retries after the first attempt; delay before retry k is k * base_delay_ms
max_retries = 2
base_delay_ms = 1000

[chat]
# direct: the assistant queries the database itself
# agent:  the assistant delegates to the external agent
mode = "direct"
max_tool_rounds = 8
resume_last_session = false

[database]
# Defaults to <data_directory>/fieldreport.db
# path = ""

[credentials]
# plaintext or ssh_key
method = "plaintext"
# ssh_key_path = "~/.ssh/id_ed25519"
`
}
