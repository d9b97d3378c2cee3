// Package vigia watches the input files of an amendment and reports when they
// change, so the amendment can be rebuilt while its author edits them.
package vigia

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/fsnotify.v1"
)

// DefaultDebounce coalesces the burst of events an editor emits per save.
const DefaultDebounce = 200 * time.Millisecond

// Vigia watches a fixed set of files.
type Vigia struct {
	watcher  *fsnotify.Watcher
	arquivos map[string]bool
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	pendente map[string]bool
	timer    *time.Timer
}

// New watches paths. Their directories are watched rather than the files
// themselves, because editors often save by renaming a temporary file.
func New(paths []string, debounce time.Duration, logger *zap.Logger) (*Vigia, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	vigia := &Vigia{
		watcher:  watcher,
		arquivos: make(map[string]bool),
		debounce: debounce,
		logger:   logger,
		pendente: make(map[string]bool),
	}

	diretorios := make(map[string]bool)
	for _, path := range paths {
		absoluto, err := filepath.Abs(path)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		vigia.arquivos[absoluto] = true
		diretorios[filepath.Dir(absoluto)] = true
	}
	for diretorio := range diretorios {
		if err := watcher.Add(diretorio); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching directory %s: %w", diretorio, err)
		}
	}
	return vigia, nil
}

// Run calls onChange with the changed paths after each settled burst of
// events, until ctx is done. onChange runs on the timer goroutine; calls never
// overlap, and none runs after Run has returned.
func (vigia *Vigia) Run(ctx context.Context, onChange func(paths []string)) error {
	var (
		chamadas sync.Mutex
		parado   bool
	)
	defer func() {
		vigia.mu.Lock()
		if vigia.timer != nil {
			vigia.timer.Stop()
		}
		vigia.mu.Unlock()
		// Waits for a callback already in flight.
		chamadas.Lock()
		parado = true
		chamadas.Unlock()
		vigia.watcher.Close()
	}()

	disparar := func() {
		chamadas.Lock()
		defer chamadas.Unlock()
		if parado {
			return
		}
		vigia.mu.Lock()
		paths := make([]string, 0, len(vigia.pendente))
		for path := range vigia.pendente {
			paths = append(paths, path)
		}
		vigia.pendente = make(map[string]bool)
		vigia.mu.Unlock()
		if len(paths) == 0 {
			return
		}
		onChange(paths)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-vigia.watcher.Events:
			if !ok {
				return nil
			}
			if !vigia.relevante(event) {
				continue
			}
			vigia.logger.Debug("File changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			vigia.mu.Lock()
			vigia.pendente[filepath.Clean(event.Name)] = true
			if vigia.timer == nil {
				vigia.timer = time.AfterFunc(vigia.debounce, disparar)
			} else {
				vigia.timer.Reset(vigia.debounce)
			}
			vigia.mu.Unlock()

		case err, ok := <-vigia.watcher.Errors:
			if !ok {
				return nil
			}
			vigia.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (vigia *Vigia) relevante(event fsnotify.Event) bool {
	absoluto, err := filepath.Abs(event.Name)
	if err != nil || !vigia.arquivos[absoluto] {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}
