package conversation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Archiver persists transcripts as append-only JSONL files, one per session.
type Archiver struct {
	dir     string
	mu      sync.Mutex
	fileMus map[string]*sync.Mutex
}

// NewArchiver creates an archiver rooted at dir, creating it if needed.
func NewArchiver(dir string) (*Archiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("Transcript archiver initialized")

	return &Archiver{
		dir:     dir,
		fileMus: make(map[string]*sync.Mutex),
	}, nil
}

// validateSessionKey rejects keys that could escape the archive directory.
func validateSessionKey(key string) error {
	if key == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("session key cannot contain '..'")
	}
	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("session key cannot contain path separators")
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("session key cannot contain null bytes")
	}
	return nil
}

func (a *Archiver) path(sessionID string) string {
	return filepath.Join(a.dir, sessionID+".jsonl")
}

func (a *Archiver) lockFor(sessionID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	if mu, ok := a.fileMus[sessionID]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	a.fileMus[sessionID] = mu
	return mu
}

// Append writes a transcript entry for a session.
func (a *Archiver) Append(_ context.Context, sessionID string, msg Message) error {
	if err := validateSessionKey(sessionID); err != nil {
		return err
	}

	mu := a.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(a.path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// Load reads back the full transcript of a session. A missing transcript
// yields an empty slice.
func (a *Archiver) Load(_ context.Context, sessionID string) ([]Message, error) {
	if err := validateSessionKey(sessionID); err != nil {
		return nil, err
	}

	f, err := os.Open(a.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	var messages []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			log.Warn().Str("session_id", sessionID).Msg("Skipping corrupt transcript line")
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return messages, nil
}

// List returns the session ids with archived transcripts.
func (a *Archiver) List() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".jsonl"))
	}

	return ids, nil
}

// Clear removes a session's transcript.
func (a *Archiver) Clear(_ context.Context, sessionID string) error {
	if err := validateSessionKey(sessionID); err != nil {
		return err
	}

	if err := os.Remove(a.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	a.mu.Lock()
	delete(a.fileMus, sessionID)
	a.mu.Unlock()

	return nil
}

var _ History = (*Archiver)(nil)
