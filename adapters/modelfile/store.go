package modelfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"hmmsynth/domain/core"
	"hmmsynth/domain/modeldef"
	"hmmsynth/internal"
)

// Format is the on-disk encoding of a model file.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatOf picks the format from the file extension. Unknown extensions are
// read as YAML, which also accepts JSON documents.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Store is a file-based implementation of ports.ModelStorePort.
type Store struct {
	logger *internal.Logger
}

// NewStore creates a Store. A nil logger uses the default one.
func NewStore(logger *internal.Logger) *Store {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Store{logger: logger}
}

func (s *Store) LoadCollection(ctx context.Context, path string) (modeldef.CollectionSpec, error) {
	if err := ctx.Err(); err != nil {
		return modeldef.CollectionSpec{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return modeldef.CollectionSpec{}, fmt.Errorf("model file %q: %w", path, os.ErrNotExist)
		}
		return modeldef.CollectionSpec{}, fmt.Errorf("read %s: %w", path, err)
	}
	spec, err := Decode(data, FormatOf(path))
	if err != nil {
		return modeldef.CollectionSpec{}, fmt.Errorf("%s: %w", path, err)
	}
	s.logger.Debug("loaded %d model(s) from %s", len(spec.Models), path)
	return spec, nil
}

func (s *Store) SaveCollection(ctx context.Context, path string, spec modeldef.CollectionSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(spec, FormatOf(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Decode parses a collection document, or a single model document which is
// returned as a one-model collection. Unknown keys are rejected.
func Decode(data []byte, format Format) (modeldef.CollectionSpec, error) {
	var probe map[string]any
	if err := unmarshal(data, format, &probe, false); err != nil {
		return modeldef.CollectionSpec{}, err
	}
	if _, ok := probe["models"]; ok {
		var spec modeldef.CollectionSpec
		if err := unmarshal(data, format, &spec, true); err != nil {
			return modeldef.CollectionSpec{}, err
		}
		return spec, nil
	}
	var model modeldef.ModelSpec
	if err := unmarshal(data, format, &model, true); err != nil {
		return modeldef.CollectionSpec{}, err
	}
	return modeldef.CollectionSpec{Models: []modeldef.ModelSpec{model}}, nil
}

// Encode renders spec in the given format.
func Encode(spec modeldef.CollectionSpec, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(spec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("json marshal: %w", err)
		}
		return data, nil
	default:
		data, err := yaml.Marshal(spec)
		if err != nil {
			return nil, fmt.Errorf("yaml marshal: %w", err)
		}
		return data, nil
	}
}

func unmarshal(data []byte, format Format, v any, strict bool) error {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(v); err != nil {
			return core.NewConfigError("model file", fmt.Sprintf("json: %v", err))
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(v); err != nil {
			return core.NewConfigError("model file", fmt.Sprintf("yaml: %v", err))
		}
	}
	return nil
}
