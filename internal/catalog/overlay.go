package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// overlayFile is the YAML shape of a catalog overlay. Operators use it to
// register node types the built-in set does not know about, or to override
// defaults for existing ones.
type overlayFile struct {
	Types []overlayEntry `yaml:"types"`
}

type overlayEntry struct {
	Name        string         `yaml:"name"`
	DisplayName string         `yaml:"display_name"`
	Type        string         `yaml:"type"`
	TypeVersion int            `yaml:"type_version"`
	Category    string         `yaml:"category"`  // trigger|action|transform|branching
	Branching   string         `yaml:"branching"` // none|binary|multiway
	Defaults    map[string]any `yaml:"defaults"`
}

// LoadOverlay reads a YAML overlay file and merges its entries into the
// catalog. Entries with the same simplified name replace built-ins.
func (c *Catalog) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading catalog overlay: %w", err)
	}

	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing catalog overlay: %w", err)
	}

	for i, oe := range file.Types {
		entry, err := oe.toEntry()
		if err != nil {
			return fmt.Errorf("catalog overlay entry %d (%q): %w", i, oe.Name, err)
		}
		c.Add(entry)
	}
	return nil
}

func (oe overlayEntry) toEntry() (Entry, error) {
	if oe.Name == "" {
		return Entry{}, fmt.Errorf("name is required")
	}
	if oe.Type == "" {
		return Entry{}, fmt.Errorf("type is required")
	}

	var category api.NodeCategory
	if err := category.UnmarshalText([]byte(oe.Category)); err != nil {
		return Entry{}, err
	}

	var branch BranchKind
	switch oe.Branching {
	case "", "none":
		branch = BranchNone
	case "binary":
		branch = BranchBinary
	case "multiway":
		branch = BranchMultiway
	default:
		return Entry{}, fmt.Errorf("unknown branching kind: %q", oe.Branching)
	}

	if branch != BranchNone && category != api.CategoryBranching {
		return Entry{}, fmt.Errorf("branching kind %q requires category branching", oe.Branching)
	}

	version := oe.TypeVersion
	if version <= 0 {
		version = 1
	}

	display := oe.DisplayName
	if display == "" {
		display = oe.Name
	}

	return Entry{
		Name:        oe.Name,
		DisplayName: display,
		Type:        oe.Type,
		TypeVersion: version,
		Category:    category,
		Branch:      branch,
		Defaults:    oe.Defaults,
	}, nil
}
