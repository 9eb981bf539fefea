package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldreport/config"
	"fieldreport/model"
)

// Transcript is a persisted conversation.
type Transcript struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Mode      model.Mode      `json:"mode"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []model.Message `json:"messages"`
}

// TranscriptMetadata is the listing view of a Transcript.
type TranscriptMetadata struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Mode         model.Mode `json:"mode"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MessageCount int        `json:"message_count"`
}

// TranscriptStorage keeps one JSON file per transcript under
// <data_dir>/transcripts.
type TranscriptStorage struct {
	dir string
}

func NewTranscriptStorage(dataDir string) (*TranscriptStorage, error) {
	dir := filepath.Join(dataDir, "transcripts")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create transcripts directory: %w", err)
	}
	return &TranscriptStorage{dir: dir}, nil
}

func (s *TranscriptStorage) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the transcript, assigning an ID on first save.
func (s *TranscriptStorage) Save(t *Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	// 0600: transcripts hold customer data
	if err := os.WriteFile(s.path(t.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write transcript file: %w", err)
	}
	return nil
}

func (s *TranscriptStorage) Load(id string) (*Transcript, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid transcript id %q: %w", id, err)
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &t, nil
}

// List returns transcript metadata, newest first.
func (s *TranscriptStorage) List() ([]TranscriptMetadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcripts directory: %w", err)
	}

	var list []TranscriptMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var t Transcript
		if err := json.Unmarshal(data, &t); err != nil {
			continue
		}
		list = append(list, TranscriptMetadata{
			ID:           t.ID,
			Name:         t.Name,
			Mode:         t.Mode,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
			MessageCount: len(t.Messages),
		})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

func (s *TranscriptStorage) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("failed to delete transcript file: %w", err)
	}
	return nil
}

func (s *TranscriptStorage) currentIDPath() string {
	return filepath.Join(filepath.Dir(s.dir), "current_transcript.id")
}

// SaveCurrentID remembers the transcript to resume on next start.
func (s *TranscriptStorage) SaveCurrentID(id string) error {
	return os.WriteFile(s.currentIDPath(), []byte(id), 0600)
}

func (s *TranscriptStorage) LoadCurrentID() (string, error) {
	data, err := os.ReadFile(s.currentIDPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// GenerateName derives a transcript title from the first user message.
func GenerateName(firstMessage string) string {
	name := strings.Join(strings.Fields(firstMessage), " ")
	if name == "" {
		return "Conversación " + time.Now().Format("2006-01-02 15:04")
	}
	runes := []rune(name)
	if len(runes) > 50 {
		name = strings.TrimSpace(string(runes[:50])) + "..."
	}
	return name
}

// Recorder persists the orchestrator's message log into one transcript.
type Recorder struct {
	mu         sync.Mutex
	storage    *TranscriptStorage
	transcript *Transcript
}

// NewRecorder records into t, or into a fresh transcript when t is nil.
func NewRecorder(s *TranscriptStorage, t *Transcript, mode model.Mode) *Recorder {
	if t == nil {
		t = &Transcript{Mode: mode}
	}
	return &Recorder{storage: s, transcript: t}
}

// Record replaces the transcript's messages with messages and saves it.
// Empty logs are not written.
func (r *Recorder) Record(messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.transcript.Messages = append([]model.Message(nil), messages...)
	if r.transcript.Name == "" {
		for _, m := range messages {
			if m.Sender == model.SenderUser {
				r.transcript.Name = GenerateName(m.Text)
				break
			}
		}
	}

	first := r.transcript.ID == ""
	if err := r.storage.Save(r.transcript); err != nil {
		return err
	}
	if first {
		if err := r.storage.SaveCurrentID(r.transcript.ID); err != nil {
			return fmt.Errorf("failed to save current transcript id: %w", err)
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Storage] Started transcript %s", r.transcript.ID)
		}
	}
	return nil
}

// SetMode records the mode the conversation is running in.
func (r *Recorder) SetMode(mode model.Mode) {
	r.mu.Lock()
	r.transcript.Mode = mode
	r.mu.Unlock()
}

// TranscriptID returns the ID assigned on first save, or "".
func (r *Recorder) TranscriptID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript.ID
}
