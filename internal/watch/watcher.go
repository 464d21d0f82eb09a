// Package watch monitors directories for new or modified data files and
// re-exports each one as a formatted workbook.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/klytics/tabkit/internal/export"
)

// DataExtensions are the file types export can read.
var DataExtensions = []string{".json", ".yaml", ".yml", ".csv"}

// Config holds the watcher configuration.
type Config struct {
	Directories []string `json:"directories"`
	Recursive   bool     `json:"recursive"`
	// Pattern optionally restricts files by glob on the base name.
	Pattern string `json:"pattern,omitempty"`
	// Extensions defaults to DataExtensions.
	Extensions []string      `json:"extensions,omitempty"`
	Debounce   time.Duration `json:"debounce"`
}

// Event is a file event that was detected and processed.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Output    string    `json:"output,omitempty"`
	Status    string    `json:"status"` // "processed", "error"
	Error     string    `json:"error,omitempty"`
}

// Handler processes a changed file and returns the path it produced.
type Handler func(ctx context.Context, path string) (string, error)

// Watcher monitors directories for file changes and runs a Handler.
type Watcher struct {
	Config  Config
	Logger  *log.Logger
	Handler Handler
	// OnEvent, when set, is called after each processed file.
	OnEvent func(Event)

	mu       sync.Mutex
	events   []Event
	watcher  *fsnotify.Watcher
	debounce map[string]*time.Timer
	wg       sync.WaitGroup
}

// Status represents the current watcher status.
type Status struct {
	Directories []string `json:"directories"`
	EventCount  int      `json:"eventCount"`
	Errors      int      `json:"errors"`
}

// New creates a Watcher that passes matching files to h.
func New(config Config, h Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	if config.Debounce <= 0 {
		config.Debounce = 500 * time.Millisecond
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DataExtensions
	}

	return &Watcher{
		Config:   config,
		Logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
		Handler:  h,
		watcher:  fsw,
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start watches the configured directories until ctx is cancelled. Pending
// debounced files are dropped on shutdown; running handlers are waited for.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.Config.Directories {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", dir, err)
		}
		if info, err := os.Stat(absDir); err != nil || !info.IsDir() {
			w.watcher.Close()
			return fmt.Errorf("directory not found: %s — check that the path is correct", dir)
		}

		if w.Config.Recursive {
			if err := w.addRecursive(absDir); err != nil {
				w.watcher.Close()
				return err
			}
		} else if err := w.watcher.Add(absDir); err != nil {
			w.watcher.Close()
			return fmt.Errorf("could not watch %s: %w", absDir, err)
		}
	}

	w.Logger.Printf("Watching %d directory(ies) for %s", len(w.Config.Directories), strings.Join(w.Config.Extensions, ", "))

	defer w.shutdown()
	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Stopping watcher")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Printf("Error: %v", err)
		}
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	for path, timer := range w.debounce {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.debounce, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
	w.watcher.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// Only process create and write events
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	path := event.Name
	if w.Config.Recursive && event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				w.Logger.Printf("Error: could not watch %s: %v", path, err)
			}
			return
		}
	}
	if !w.Matches(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounce[path]; ok && timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	op := event.Op.String()
	var timer *time.Timer
	timer = time.AfterFunc(w.Config.Debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.debounce[path] == timer {
			delete(w.debounce, path)
		}
		w.mu.Unlock()
		w.processFile(ctx, path, op)
	})
	w.debounce[path] = timer
}

// Matches reports whether path is a data file the watcher acts on. Editor
// temp files and hidden files never match.
func (w *Watcher) Matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	matched := false
	for _, e := range w.Config.Extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.ToLower(e) == ext {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	if w.Config.Pattern != "" {
		if ok, _ := filepath.Match(w.Config.Pattern, base); !ok {
			return false
		}
	}
	return true
}

func (w *Watcher) processFile(ctx context.Context, path, operation string) {
	if ctx.Err() != nil {
		return
	}

	evt := Event{Time: time.Now(), Path: path, Operation: operation, Status: "processed"}
	if w.Handler != nil {
		out, err := w.Handler(ctx, path)
		if err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			w.Logger.Printf("Error processing %s: %v", path, err)
		} else {
			evt.Output = out
			w.Logger.Printf("Processed %s -> %s", path, out)
		}
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()

	if w.OnEvent != nil {
		w.OnEvent(evt)
	}
}

// GetStatus returns the current watcher status.
func (w *Watcher) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Status{Directories: w.Config.Directories, EventCount: len(w.events)}
	for _, e := range w.events {
		if e.Status == "error" {
			s.Errors++
		}
	}
	return s
}

// GetEvents returns all recorded events.
func (w *Watcher) GetEvents() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}

// ExportHandler exports each changed file to <outDir>/<base>.xlsx. An
// empty outDir writes next to the input.
func ExportHandler(outDir string, opts export.Options, csvDelimiter rune) Handler {
	return func(ctx context.Context, path string) (string, error) {
		src, err := export.LoadFile(path, csvDelimiter)
		if err != nil {
			return "", err
		}

		dir := outDir
		if dir == "" {
			dir = filepath.Dir(path)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("could not create output directory: %w", err)
		}

		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out := filepath.Join(dir, base+".xlsx")
		if _, err := export.File(src, out, opts); err != nil {
			return "", err
		}
		return out, nil
	}
}
