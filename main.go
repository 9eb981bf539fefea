package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"fieldreport/agent"
	"fieldreport/chat"
	"fieldreport/config"
	"fieldreport/model"
	"fieldreport/provider"
	"fieldreport/storage"
	"fieldreport/tools"
	"fieldreport/ui"
)

const Version = "v0.01.00"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Main] fieldreport %s starting, data dir %s", Version, cfg.DataDir())
	}

	db, err := storage.OpenSQLite(cfg.DatabasePath())
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	transcripts, err := storage.NewTranscriptStorage(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to initialize transcript storage: %v\n", err)
		os.Exit(1)
	}

	llm, err := provider.FromConfig(cfg)
	if err != nil {
		if !errors.Is(err, provider.ErrNotConfigured) {
			fmt.Printf("Failed to initialize provider: %v\n", err)
			os.Exit(1)
		}
		// Missing credentials: open anyway and report it on every turn.
		llm = provider.Unavailable{Err: err}
	}

	agentClient := agent.NewClient(cfg.Agent.URL, cfg.Agent.MaxRetries, cfg.AgentBaseDelay())
	mode := model.ParseMode(cfg.Chat.Mode)

	var last *storage.Transcript
	if cfg.Chat.ResumeLastSession {
		if id, err := transcripts.LoadCurrentID(); err == nil && id != "" {
			last, err = transcripts.Load(id)
			if err != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[Main] Warning: failed to load transcript %s: %v", id, err)
			}
		}
	}
	if last != nil && last.Mode != "" {
		mode = last.Mode
	}

	orchestrator := chat.New(chat.Options{
		Provider:      llm,
		Tools:         tools.NewExecutor(db, agentClient),
		Agent:         agentClient,
		Recorder:      storage.NewRecorder(transcripts, last, mode),
		Mode:          mode,
		MaxToolRounds: cfg.Chat.MaxToolRounds,
	})
	if last != nil {
		orchestrator.Restore(last.Messages)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(
		ui.NewAppView(ctx, orchestrator, llm.Name()),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running fieldreport: %v\n", err)
		os.Exit(1)
	}
}
