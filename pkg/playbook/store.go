package playbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrPlaybookNotFound is returned when no file matches the playbook name.
	ErrPlaybookNotFound = errors.New("playbook not found")

	// ErrInvalidName is returned for names that would escape the store directory.
	ErrInvalidName = errors.New("invalid playbook name")
)

// Summary is the listing entry of a stored playbook.
type Summary struct {
	Name       string `json:"name"`
	File       string `json:"file"`
	Trigger    any    `json:"trigger"`
	Conditions any    `json:"conditions"`
	Actions    any    `json:"actions"`
	Error      string `json:"error,omitempty"`
}

// Store keeps playbook documents as YAML files in a single directory.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// List returns every *.yml and *.yaml document ordered by file name. Files that
// fail to parse are listed with their error instead of failing the listing.
func (s *Store) List() ([]Summary, error) {
	files := make([]string, 0)

	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := fs.Glob(os.DirFS(s.root), pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to list playbooks: %w", err)
		}

		files = append(files, matches...)
	}

	sort.Strings(files)

	items := make([]Summary, 0, len(files))
	for _, file := range files {
		item := Summary{
			Name: strings.TrimSuffix(file, filepath.Ext(file)),
			File: file,
		}

		raw, err := s.readFile(file)
		if err != nil {
			item.Error = err.Error()
			items = append(items, item)

			continue
		}

		if name, ok := raw["name"].(string); ok && name != "" {
			item.Name = name
		}

		item.Trigger = raw["trigger"]
		item.Conditions = orEmpty(raw["conditions"])
		item.Actions = orEmpty(raw["actions"])

		items = append(items, item)
	}

	return items, nil
}

// Path resolves a playbook name to the path of an existing file.
func (s *Store) Path(name string) (string, error) {
	file, err := fileName(name)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.root, file)

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrPlaybookNotFound, name)
	}

	if err != nil {
		return "", fmt.Errorf("failed to stat playbook %s: %w", name, err)
	}

	return path, nil
}

// Read returns the raw document of a stored playbook.
func (s *Store) Read(name string) (map[string]any, error) {
	file, err := fileName(name)
	if err != nil {
		return nil, err
	}

	return s.readFile(file)
}

// Write stores content under name, replacing any existing document.
func (s *Store) Write(name string, content []byte) error {
	file, err := fileName(name)
	if err != nil {
		return err
	}

	err = os.MkdirAll(s.root, 0750)
	if err != nil {
		return fmt.Errorf("failed to create playbooks directory: %w", err)
	}

	err = os.WriteFile(filepath.Join(s.root, file), content, 0600)
	if err != nil {
		return fmt.Errorf("failed to write playbook %s: %w", name, err)
	}

	return nil
}

// WriteDocument serializes doc as YAML and stores it under name.
func (s *Store) WriteDocument(name string, doc map[string]any) error {
	content, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal playbook %s: %w", name, err)
	}

	return s.Write(name, content)
}

// Upload stores a file under its own name, which must carry a YAML extension.
func (s *Store) Upload(filename string, content []byte) error {
	base := filepath.Base(filename)
	if base != filename || !hasYAMLExt(base) {
		return fmt.Errorf("%w: %s", ErrInvalidName, filename)
	}

	return s.Write(base, content)
}

func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to delete playbook %s: %w", name, err)
	}

	return nil
}

func (s *Store) readFile(file string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(s.root, file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPlaybookNotFound, file)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read playbook %s: %w", file, err)
	}

	return ParseDocument(data)
}

// fileName maps a playbook name to its file name, defaulting to ".yml".
func fileName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if hasYAMLExt(name) {
		return name, nil
	}

	return name + ".yml", nil
}

func hasYAMLExt(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}

func orEmpty(v any) any {
	if v == nil {
		return []any{}
	}

	return v
}
