package configuration

import (
	"path/filepath"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/fsnotify/fsnotify"
)

// AdminKeyFunc receives a rotated admin key
type AdminKeyFunc func(key string)

// Watcher re-reads the configuration file when it changes. Only the admin
// key is applied at runtime; other changes take effect on restart.
type Watcher struct {
	sync.Mutex
	fileName   string
	envFile    string
	current    *Configuration
	onAdminKey AdminKeyFunc
	watcher    *fsnotify.Watcher
	shutdown   chan struct{}
	wg         sync.WaitGroup
	log        *logger.L
}

func NewWatcher(fileName string, envFile string, current *Configuration, onAdminKey AdminKeyFunc) (*Watcher, error) {
	path, err := filepath.Abs(filepath.Clean(fileName))
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fileName:   path,
		envFile:    envFile,
		current:    current,
		onAdminKey: onAdminKey,
		watcher:    watcher,
		shutdown:   make(chan struct{}),
		log:        logger.New("config"),
	}, nil
}

// Start watches the file's directory, so editors that replace the file
// by renaming are still seen
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.fileName)); err != nil {
		w.log.Errorf("watcher add error: %s", err)
		return err
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) Stop() {
	close(w.shutdown)
	w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.shutdown:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.fileName {
				continue
			}
			if !fileChanged(event) {
				continue
			}
			w.log.Debugf("file event: %v", event)
			if err := w.Reload(); err != nil {
				w.log.Errorf("reload %s: %s", w.fileName, err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorf("watch %s: %s", w.fileName, err)
		}
	}
}

func fileChanged(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create
}

// Reload reads the file again and rotates the admin key if it changed.
// An invalid file leaves the running configuration untouched.
func (w *Watcher) Reload() error {
	next, err := Load(w.fileName, w.envFile)
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	w.Lock()
	defer w.Unlock()

	if next.AdminAPIKey != w.current.AdminAPIKey {
		w.current.AdminAPIKey = next.AdminAPIKey
		w.onAdminKey(next.AdminAPIKey)
		w.log.Info("admin key rotated")
	}

	if next.Port != w.current.Port ||
		next.DataDirectory != w.current.DataDirectory ||
		next.Database != w.current.Database ||
		next.Difficulty != w.current.Difficulty ||
		next.AutoMineInterval != w.current.AutoMineInterval ||
		next.RateLimit != w.current.RateLimit {
		w.log.Warn("configuration changed: restart to apply settings other than the admin key")
	}
	return nil
}
