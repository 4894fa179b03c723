package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/sercha-dedup/internal/adapters/driven/config"
	"github.com/custodia-labs/sercha-dedup/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in a map. Save and Load are no-ops, so it
// stands in for a config file in tests.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore returns a store pre-populated with seed. The seed map is
// copied.
func NewConfigStore(seed ...map[string]any) *ConfigStore {
	s := &ConfigStore{values: make(map[string]any)}
	for _, m := range seed {
		maps.Copy(s.values, m)
	}
	return s
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) lookup(key string) any {
	v, _ := s.Get(key)
	return v
}

func (s *ConfigStore) GetString(key string) string { return config.String(s.lookup(key)) }
func (s *ConfigStore) GetInt(key string) int { return config.Int(s.lookup(key)) }
func (s *ConfigStore) GetFloat(key string) float64 { return config.Float(s.lookup(key)) }
func (s *ConfigStore) GetBool(key string) bool { return config.Bool(s.lookup(key)) }
func (s *ConfigStore) GetStringSlice(key string) []string { return config.StringSlice(s.lookup(key)) }

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *ConfigStore) Save() error { return nil }
func (s *ConfigStore) Load() error { return nil }
func (s *ConfigStore) Path() string { return ":memory:" }
