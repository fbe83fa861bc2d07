package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	maxFileSize = 10 * 1024 * 1024 // 10MB limit to prevent memory exhaustion
)

// ErrUnknownFormat is returned for files that are neither JSON nor YAML.
var ErrUnknownFormat = errors.New("unknown listing file extension")

// fileEnvelope is the object form of a listing file; a bare array is also accepted.
type fileEnvelope struct {
	Listings []Listing `json:"listings" yaml:"listings"`
}

// LoadFile reads listings from a JSON or YAML file.
func LoadFile(path string) ([]Listing, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	ls, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ls, nil
}

// readFile reads a file with sane limits to prevent attacks.
func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("listing file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	return io.ReadAll(io.LimitReader(file, maxFileSize))
}

// decode picks JSON or YAML by extension and accepts either a bare array or an
// object with a "listings" key.
func decode(path string, data []byte) ([]Listing, error) {
	switch {
	case isJSONFile(path):
		if err := detectCaseInsensitiveKeyCollisions(data); err != nil {
			return nil, fmt.Errorf("case-insensitive key collision detected: %w", err)
		}
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var ls []Listing
			return ls, json.Unmarshal(trimmed, &ls)
		}
		var env fileEnvelope
		return env.Listings, json.Unmarshal(trimmed, &env)
	case isYAMLFile(path):
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			return nil, nil
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			var ls []Listing
			return ls, node.Decode(&ls)
		}
		var env fileEnvelope
		return env.Listings, node.Decode(&env)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Ext(path))
	}
}

// detectCaseInsensitiveKeyCollisions rejects JSON objects holding keys that differ only
// by case, such as "priceCr" and "pricecr", which encoding/json would silently merge.
func detectCaseInsensitiveKeyCollisions(data []byte) error {
	var res any
	// Syntax errors are left for the main decode to report.
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&res); err != nil {
		return nil
	}
	return checkCaseInsensitiveKeysRecursive(res, "")
}

func checkCaseInsensitiveKeysRecursive(obj any, path string) error {
	switch v := obj.(type) {
	case map[string]any:
		lowerToOriginal := make(map[string]string, len(v))
		for key, value := range v {
			lower := strings.ToLower(key)
			if first, exists := lowerToOriginal[lower]; exists {
				return fmt.Errorf("case-insensitive key collision at '%s': '%s' and '%s'", joinPath(path, key), key, first)
			}
			lowerToOriginal[lower] = key
			if err := checkCaseInsensitiveKeysRecursive(value, joinPath(path, key)); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range v {
			if err := checkCaseInsensitiveKeysRecursive(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isJSONFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}

func isListingFile(path string) bool {
	return isJSONFile(path) || isYAMLFile(path)
}
