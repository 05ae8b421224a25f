package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/stagehand-labs/stagehand/internal/failure"
	"go.yaml.in/yaml/v3"
)

// Load reads, validates, and returns the manifest at path. The format is
// chosen from the file extension.
func Load(path string) (*Manifest, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes data, validates it against the schema, and checks
// cross-references. Structural problems are reported as MalformedManifest,
// dangling task or file references as UnresolvedReference.
func Parse(data []byte, format Format) (*Manifest, error) {
	doc, err := decodeGeneric(data, format)
	if err != nil {
		return nil, failure.Wrap(failure.ErrMalformedManifest, err, "decoding %s", format)
	}

	result, err := validateDocument(doc)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, failure.New(failure.ErrMalformedManifest, "%s", result.Summary())
	}

	m, err := decodeTyped(data, format)
	if err != nil {
		return nil, failure.Wrap(failure.ErrMalformedManifest, err, "decoding %s", format)
	}

	if err := Check(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DetectFormat maps a file extension to a manifest format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", failure.New(failure.ErrMalformedManifest, "unsupported manifest extension %q in %s", filepath.Ext(path), path)
	}
}

// decodeGeneric unmarshals data into plain maps and slices for schema validation.
func decodeGeneric(data []byte, format Format) (interface{}, error) {
	var raw interface{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("unmarshaling YAML: %w", err)
		}
	case FormatTOML:
		m := map[string]interface{}{}
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshaling TOML: %w", err)
		}
		raw = m
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("unmarshaling JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if raw == nil {
		return nil, fmt.Errorf("document is empty")
	}
	return normalize(raw), nil
}

func decodeTyped(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return &m, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
