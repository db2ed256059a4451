package runconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// LoadError reports a base config file that could not be read or decoded.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a base run config from path. The format is chosen by
// extension: .json, .yaml/.yml or .cue. The file must hold a single
// top-level object; its key order is preserved.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "read config", Err: err}
	}
	return Parse(path, data)
}

// Parse decodes config data. path is used for format selection and error
// messages only.
func Parse(path string, data []byte) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		cfg, err = parseJSON(data)
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	case ".cue":
		cfg, err = parseCUE(path, data)
	default:
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported config format %q (want .json, .yaml, .yml or .cue)", ext)}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Message: "decode config", Err: err}
	}
	return cfg, nil
}

func parseJSON(data []byte) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("top-level value must be an object")
	}

	cfg := New()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		cfg.set(key, fromJSON(value))
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after top-level object")
	}
	return cfg, nil
}

// fromJSON converts json.Number values into int64 or float64.
func fromJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case []any:
		for i, elem := range val {
			val[i] = fromJSON(elem)
		}
		return val
	case map[string]any:
		for k, elem := range val {
			val[k] = fromJSON(elem)
		}
		return val
	default:
		return v
	}
}

func parseYAML(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top-level value must be a mapping", root.Line)
	}

	cfg := New()
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		var value any
		if err := valueNode.Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: key %q: %w", keyNode.Line, keyNode.Value, err)
		}
		cfg.set(keyNode.Value, value)
	}
	return cfg, nil
}

func parseCUE(path string, data []byte) (*Config, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, err
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}

	iter, err := value.Fields()
	if err != nil {
		return nil, err
	}
	cfg := New()
	for iter.Next() {
		v, err := cueValue(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", iter.Label(), err)
		}
		cfg.set(iter.Label(), v)
	}
	return cfg, nil
}

func cueValue(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return v.String()
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return v.Float64()
	case cue.NullKind:
		return nil, nil
	default:
		var out any
		if err := v.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
