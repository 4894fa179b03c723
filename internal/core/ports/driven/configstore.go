package driven

// ConfigStore is a flat key-value view over the settings file. Keys are
// dotted paths such as "chunking.max_chunk_size".
//
// Typed getters never fail: a missing key or a value of the wrong type
// yields the zero value. Callers that must tell "unset" from zero use Get.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores value under key and persists it before returning.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is the backing file, or ":memory:" for the in-memory store.
	Path() string
}
