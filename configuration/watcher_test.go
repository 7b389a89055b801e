package configuration_test

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voting-ledger/configuration"
)

type keyRecorder struct {
	sync.Mutex
	keys []string
}

func (r *keyRecorder) set(key string) {
	r.Lock()
	defer r.Unlock()
	r.keys = append(r.keys, key)
}

func (r *keyRecorder) last() string {
	r.Lock()
	defer r.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	return r.keys[len(r.keys)-1]
}

func writeAt(path string, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func loaded(t *testing.T, path string) *configuration.Configuration {
	c, err := configuration.Load(path, "")
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	return c
}

func TestReloadRotatesAdminKey(t *testing.T) {
	clearEnvironment(t)
	path := writeFile(t, t.TempDir(), "ledgerd.conf", luaConfig)
	current := loaded(t, path)

	recorder := &keyRecorder{}
	w, err := configuration.NewWatcher(path, "", current, recorder.set)
	require.NoError(t, err)

	// unchanged file: nothing to rotate
	require.NoError(t, w.Reload())
	assert.Empty(t, recorder.keys)

	rotated := strings.Replace(luaConfig, "from-file", "rotated", 1)
	require.NoError(t, writeAt(path, rotated))
	require.NoError(t, w.Reload())
	assert.Equal(t, "rotated", recorder.last())
	assert.Equal(t, "rotated", current.AdminAPIKey)

	// an invalid file keeps the running key
	require.NoError(t, writeAt(path, strings.Replace(luaConfig, "difficulty = 3", "difficulty = 99", 1)))
	assert.Error(t, w.Reload())
	assert.Equal(t, "rotated", current.AdminAPIKey)
}

func TestWatcherSeesFileWrites(t *testing.T) {
	clearEnvironment(t)
	path := writeFile(t, t.TempDir(), "ledgerd.conf", luaConfig)
	current := loaded(t, path)

	recorder := &keyRecorder{}
	w, err := configuration.NewWatcher(path, "", current, recorder.set)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, writeAt(path, strings.Replace(luaConfig, "from-file", "watched", 1)))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && recorder.last() != "watched" {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, "watched", recorder.last())
}
