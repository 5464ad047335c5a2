package provision

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/viet-stackable/secret-operator/internal/logger"
)

// adminKeytabPollInterval is the interval at which the admin keytab file is
// polled for changes.
const adminKeytabPollInterval = 60 * time.Second

// AdminKeytabWatcher watches the admin service keytab for changes and
// triggers a reconnect of the kadmin session.
//
// It polls the file's modification time rather than using inotify because the
// keytab is typically replaced atomically (via rename) by key rotation tools,
// and polling behaves the same across platforms and mounted volumes.
//
// Thread Safety: all methods are safe for concurrent use.
type AdminKeytabWatcher struct {
	path     string
	onChange func() error
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	lastMod  time.Time
}

// NewAdminKeytabWatcher creates a watcher (not yet started). onChange is
// called whenever the keytab file changes; it should re-establish the kadmin
// session with the new key.
func NewAdminKeytabWatcher(path string, onChange func() error) *AdminKeytabWatcher {
	return &AdminKeytabWatcher{
		path:     path,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
}

// Start validates the keytab file exists, records its modification time, and
// begins polling in the background.
func (w *AdminKeytabWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("admin keytab not accessible: %w", err)
	}
	w.lastMod = info.ModTime()

	go w.pollLoop()

	logger.Info("admin keytab watch started",
		"path", w.path,
		"poll_interval", adminKeytabPollInterval.String(),
	)
	return nil
}

// Stop stops the polling goroutine.
//
// Safe to call multiple times or on a watcher that was never started.
func (w *AdminKeytabWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *AdminKeytabWatcher) pollLoop() {
	ticker := time.NewTicker(adminKeytabPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkAndReload()
		case <-w.stopCh:
			return
		}
	}
}

func (w *AdminKeytabWatcher) checkAndReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.path)
	if err != nil {
		logger.Error("admin keytab stat failed", "path", w.path, "error", err)
		return
	}

	modTime := info.ModTime()
	if modTime.Equal(w.lastMod) {
		return
	}

	if err := w.onChange(); err != nil {
		logger.Error("kadmin session reconnect failed", "path", w.path, "error", err)
		return
	}

	w.lastMod = modTime
	logger.Info("kadmin session reconnected after keytab change", "path", w.path)
}
