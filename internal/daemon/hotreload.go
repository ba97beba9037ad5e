package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nomadstudio/atmos/internal/atmosphere"
	"github.com/nomadstudio/atmos/internal/config"
)

// DefaultDebounce is how long the watcher waits for a burst of editor
// writes to settle before reloading.
const DefaultDebounce = 200 * time.Millisecond

// ConfigWatcher watches the config file for changes and validates new configs.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath string
	debounce   time.Duration

	// Current valid config
	currentConfig *config.Config

	// Callbacks
	onReloadCallback func(oldConfig, newConfig *config.Config)
	onErrorCallback  func(err error)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewConfigWatcher creates a ConfigWatcher for path. An empty path means
// the default config location.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = config.ConfigPath()
	}
	return &ConfigWatcher{
		logger:     logger,
		configPath: filepath.Clean(path),
		debounce:   DefaultDebounce,
	}
}

// SetDebounce sets the settle delay between a file event and the reload.
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(oldConfig, newConfig *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the config file. The containing directory is
// watched so editors that replace the file by rename are picked up.
func (w *ConfigWatcher) Start(ctx context.Context, initialConfig *config.Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(w.configPath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.watcher = watcher
	w.currentConfig = initialConfig
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.watchLoop(ctx, watcher, w.stopCh, w.doneCh)

	w.logger.Debug("config watcher started", "path", w.configPath)
	return nil
}

// Stop stops watching the config file.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	watcher := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	// Wait for goroutine to finish
	<-doneCh
	if err := watcher.Close(); err != nil {
		w.logger.Debug("failed to close watcher", "error", err)
	}
	w.logger.Debug("config watcher stopped")
}

// IsRunning reports whether the watcher is active.
func (w *ConfigWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// CurrentConfig returns the current valid configuration.
func (w *ConfigWatcher) CurrentConfig() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

func (w *ConfigWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file changed", "path", event.Name, "op", event.Op.String())

			w.mu.RLock()
			delay := w.debounce
			w.mu.RUnlock()
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			timerC = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-timerC:
			timerC = nil
			w.reload()
		}
	}
}

// relevant reports whether event may have changed the config file's contents.
func (w *ConfigWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.configPath {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Reload re-reads the config file immediately, as if it had changed.
func (w *ConfigWatcher) Reload() {
	w.reload()
}

// reload loads and validates the config file, then notifies callbacks.
func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	newConfig, err := config.LoadConfig(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	oldConfig := w.currentConfig
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully")
	if reloadCallback != nil {
		reloadCallback(oldConfig, newConfig)
	}
}

// Target receives reloaded settings. *controller.Controller satisfies it.
type Target interface {
	SetManifest(m atmosphere.Manifest)
	SetVolume(level float64)
	SetMuted(muted bool)
}

// ApplyConfig pushes the live-reloadable parts of newConfig to t. Volume
// and mute are only applied when they differ from oldConfig, so runtime
// changes made over D-Bus survive unrelated edits. Settings that need a
// restart are logged.
func ApplyConfig(t Target, oldConfig, newConfig *config.Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if newConfig == nil {
		return
	}

	t.SetManifest(newConfig.Manifest())

	if oldConfig == nil || oldConfig.Audio.Volume != newConfig.Audio.Volume {
		logger.Debug("applying volume from config", "volume", newConfig.Audio.Volume)
		t.SetVolume(newConfig.Audio.Volume)
	}
	if oldConfig == nil || oldConfig.Audio.Muted != newConfig.Audio.Muted {
		logger.Debug("applying mute from config", "muted", newConfig.Audio.Muted)
		t.SetMuted(newConfig.Audio.Muted)
	}

	if oldConfig == nil {
		return
	}
	if oldConfig.Glide != newConfig.Glide {
		logger.Info("glide settings changed; restart atmosd to apply them")
	}
	if oldConfig.Audio.AssetsDir != newConfig.Audio.AssetsDir {
		logger.Info("assets_dir changed; restart atmosd to apply it")
	}
}
