package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestName is the manifest file expected at the root of a corpus directory.
const ManifestName = "manifest.yaml"

// Manifest lists the canonical book and chapter ordering of a corpus
// directory. Chapter entries are file names relative to the directory;
// their order here is the traversal order, not the file system order.
type Manifest struct {
	Collection string         `yaml:"collection"`
	Books      []ManifestBook `yaml:"books"`
}

// ManifestBook is one book entry in the manifest.
type ManifestBook struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name,omitempty"`
	Chapters []string `yaml:"chapters"`
}

// LoadManifest reads and parses manifest.yaml from dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(m.Books) == 0 {
		return nil, fmt.Errorf("%s: no books listed", path)
	}
	return &m, nil
}

// Save writes the manifest to dir as manifest.yaml.
func (m *Manifest) Save(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
