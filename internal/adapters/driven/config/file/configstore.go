package file

import (
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

const (
	// DefaultDirName is the configuration directory under the user's home.
	DefaultDirName = ".docmind"
	fileName       = "config.toml"
)

// ConfigStore keeps config.toml in memory as a flat map. Tables surface
// as dotted keys ("chunking.chunk_size") and are written back as tables.
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// DefaultDir returns ~/.docmind.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDirName), nil
}

// NewConfigStore opens dir/config.toml, creating dir when needed. An empty
// dir means DefaultDir. A missing file is an empty config.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	s := &ConfigStore{path: filepath.Join(dir, fileName), data: map[string]any{}}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) Path() string { return s.path }

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// GetString returns "" for a missing key or a non-string value.
func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt accepts the int64 the TOML decoder produces as well as int.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// GetFloat widens integers.
func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

// Set updates key and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.writeLocked()
}

// writeLocked uses mode 0600 because provider API keys may be stored here.
func (s *ConfigStore) writeLocked() error {
	out, err := toml.Marshal(nestMap(s.data))
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, out, 0o600)
}

// Load replaces the in-memory config with the file's contents. A file that
// no longer exists leaves the store empty.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.data = map[string]any{}
		return nil
	}
	if err != nil {
		return err
	}

	tree := map[string]any{}
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return err
	}
	flat := map[string]any{}
	flatten(flat, "", tree)
	s.data = flat
	return nil
}

// flatten copies tree into dst with dotted keys: {"a": {"b": 1}} -> {"a.b": 1}.
func flatten(dst map[string]any, prefix string, tree map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(dst, k, sub)
			continue
		}
		dst[k] = v
	}
}

// nestMap reverses flatten. Keys are placed shallowest first, and a dotted
// key whose parent is already a scalar stays a quoted top-level key.
func nestMap(flat map[string]any) map[string]any {
	keys := slices.SortedFunc(maps.Keys(flat), func(a, b string) int {
		if d := strings.Count(a, ".") - strings.Count(b, "."); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	root := map[string]any{}
	for _, key := range keys {
		if table, leaf, ok := descend(root, key); ok {
			table[leaf] = flat[key]
		} else {
			root[key] = flat[key]
		}
	}
	return root
}

// descend returns the table that should hold key's last segment, creating
// intermediate tables. ok is false when a segment is taken by a scalar.
func descend(root map[string]any, key string) (table map[string]any, leaf string, ok bool) {
	parts := strings.Split(key, ".")
	table = root
	for _, part := range parts[:len(parts)-1] {
		switch next := table[part].(type) {
		case nil:
			child := map[string]any{}
			table[part] = child
			table = child
		case map[string]any:
			table = next
		default:
			return nil, "", false
		}
	}
	return table, parts[len(parts)-1], true
}
