// Package prompt loads YAML prompt templates and substitutes {name}
// placeholders. The cache is per-Loader, owned by whoever constructs the
// pipeline, with explicit invalidation; there is no package-level singleton.
package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Meta struct {
	Authors  []string `yaml:"authors"`
	Category string   `yaml:"category"`
	UseCase  string   `yaml:"use_case"`
}

type Template struct {
	Text         string `yaml:"text"`
	Description  string `yaml:"description"`
	DefaultModel string `yaml:"default_model"`
	Provider     string `yaml:"provider"`
	Version      string `yaml:"version"`
	Meta         Meta   `yaml:"meta"`
}

type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Template
}

func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: make(map[string]*Template),
	}
}

// Load returns the parsed template for a path like "journal/generate-entry",
// reading <dir>/<path>.yml on first use and caching thereafter.
func (l *Loader) Load(path string) (*Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tpl, ok := l.cache[path]; ok {
		return tpl, nil
	}

	fullPath := filepath.Join(l.dir, filepath.FromSlash(path)+".yml")
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("prompt template not found: %s: %w", fullPath, err)
	}

	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", path, err)
	}

	l.cache[path] = &tpl
	return &tpl, nil
}

// Text loads a template and substitutes every {key} occurrence. Non-string
// values are JSON-encoded.
func (l *Loader) Text(path string, vars map[string]interface{}) (string, error) {
	tpl, err := l.Load(path)
	if err != nil {
		return "", err
	}

	text := tpl.Text
	for key, value := range vars {
		str, ok := value.(string)
		if !ok {
			b, err := json.Marshal(value)
			if err != nil {
				return "", fmt.Errorf("failed to encode prompt variable %q: %w", key, err)
			}
			str = string(b)
		}
		text = strings.ReplaceAll(text, "{"+key+"}", str)
	}
	return text, nil
}

// Invalidate clears the cache so templates are re-read from disk.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*Template)
}
