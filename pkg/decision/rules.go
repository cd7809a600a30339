package decision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// rulesFile is the on-disk shape of a routing rules file.
type rulesFile struct {
	Rules    []Rule `json:"rules"`
	Fallback string `json:"fallback,omitempty"`
}

// LoadRules reads a priority-ordered rule list from a JSON file.
func LoadRules(path string) ([]Rule, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read rules file: %w", err)
	}

	var rf rulesFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, "", fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i, rule := range rf.Rules {
		if rule.Label == "" {
			return nil, "", fmt.Errorf("rule %d has no label", i)
		}
		if len(rule.Keywords) == 0 {
			return nil, "", fmt.Errorf("rule %d (%s) has no keywords", i, rule.Label)
		}
	}

	return rf.Rules, rf.Fallback, nil
}

// Watcher hot-reloads a keyword decider's rules when its backing file
// changes. Reload failures keep the previous rules in place.
type Watcher struct {
	path    string
	keyword *Keyword
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
	done    chan struct{}
}

// NewWatcher starts watching a rules file. The keyword decider keeps its
// current rules until the first successful reload.
func NewWatcher(path string, keyword *Keyword, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory; editors often replace the file on save.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch rules directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		keyword: keyword,
		watcher: fw,
		logger:  logger,
		done:    make(chan struct{}),
	}

	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce.Reset(500 * time.Millisecond)
		case <-debounce.C:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Rules watcher error")
		}
	}
}

func (w *Watcher) reload() {
	rules, _, err := LoadRules(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("Rules reload failed, keeping previous rules")
		return
	}

	w.keyword.SetRules(rules)
	w.logger.Info().Str("path", w.path).Int("rules", len(rules)).Msg("Routing rules reloaded")
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
