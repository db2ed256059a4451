// Package runconfig holds trainer run configurations.
//
// A Config is an insertion-ordered mapping from flag name to value. The
// order matters: it is the order in which flags are rendered on the trainer
// command line. Configs are immutable once built; With returns a derived
// copy, so a base config loaded from disk can be shared by every sweep point
// without one point observing another point's overrides.
package runconfig

import "maps"

// Config is an ordered, immutable flag-name → value mapping.
//
// Values are one of: string, bool, int64, float64, nil, []any or
// map[string]any. Loaders normalize whatever their decoder produces into
// these types.
type Config struct {
	keys   []string
	values map[string]any
}

// Entry is a single key/value pair used to build or override a Config.
type Entry struct {
	Key   string
	Value any
}

// New builds a Config from entries in order. A repeated key keeps its first
// position and its last value.
func New(entries ...Entry) *Config {
	c := &Config{values: make(map[string]any, len(entries))}
	for _, e := range entries {
		c.set(e.Key, e.Value)
	}
	return c
}

func (c *Config) set(key string, value any) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = normalize(value)
}

// With returns a copy of c with the given overrides applied. Existing keys
// keep their position; new keys are appended in the order given.
func (c *Config) With(overrides ...Entry) *Config {
	out := &Config{
		keys:   append(make([]string, 0, len(c.keys)+len(overrides)), c.keys...),
		values: maps.Clone(c.values),
	}
	if out.values == nil {
		out.values = make(map[string]any, len(overrides))
	}
	for _, e := range overrides {
		out.set(e.Key, e.Value)
	}
	return out
}

// Get returns the value stored under key.
func (c *Config) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns the value under key rendered the way the command line
// renders it, or "" when the key is absent.
func (c *Config) String(key string) string {
	v, ok := c.values[key]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Keys returns the keys in order.
func (c *Config) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Entries returns the key/value pairs in order.
func (c *Config) Entries() []Entry {
	entries := make([]Entry, len(c.keys))
	for i, k := range c.keys {
		entries[i] = Entry{Key: k, Value: c.values[k]}
	}
	return entries
}

// Len returns the number of keys.
func (c *Config) Len() int {
	return len(c.keys)
}

// Map returns an unordered copy of the config, for hashing and JSON output.
func (c *Config) Map() map[string]any {
	return maps.Clone(c.values)
}

// normalize folds the numeric types decoders commonly produce into int64 and
// float64 so that equal configs compare and hash equally.
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalize(elem)
		}
		return out
	default:
		return v
	}
}
