// Package seed loads initial ideoms and prefabs from YAML files so a
// fresh network starts with a usable vocabulary. Seeds go through the
// same Network/Manager entry points as runtime mutations, so all
// clamping rules hold.
package seed

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vthunder/ideonet/internal/network"
	"github.com/vthunder/ideonet/internal/prefab"
)

// IdeomSeed is one ideom definition in a seed file.
type IdeomSeed struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Category    string             `yaml:"category"`
	Threshold   float64            `yaml:"threshold"`
	Decay       float64            `yaml:"decay"`
	Connections map[string]float64 `yaml:"connections"`
}

// PrefabSeed is one prefab definition in a seed file.
type PrefabSeed struct {
	ID        string             `yaml:"id"`
	Name      string             `yaml:"name"`
	Category  string             `yaml:"category"`
	Threshold float64            `yaml:"threshold"`
	Pattern   map[string]float64 `yaml:"pattern"`
}

// File is the document shape of one seed file.
type File struct {
	Ideoms  []IdeomSeed  `yaml:"ideoms"`
	Prefabs []PrefabSeed `yaml:"prefabs"`
}

// Load reads every *.yaml and *.yml file under dir and applies it to the
// network and prefab manager. A malformed file is logged and skipped;
// the rest still load. Connections are applied after all ideoms exist so
// seed files may reference each other.
func Load(dir string, net *network.Network, mgr *prefab.Manager) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to glob seeds: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to glob seeds: %w", err)
	}
	files = append(files, ymlFiles...)

	var docs []File
	for _, file := range files {
		doc, err := loadFile(file)
		if err != nil {
			log.Printf("[seed] failed to load %s: %v", file, err)
			continue
		}
		docs = append(docs, *doc)
	}

	ideoms, prefabs := 0, 0
	for _, doc := range docs {
		for _, is := range doc.Ideoms {
			if is.ID == "" {
				log.Printf("[seed] skipping ideom with empty id")
				continue
			}
			name := is.Name
			if name == "" {
				name = is.ID
			}
			ideom := network.NewIdeom(is.ID, name, is.Category)
			if is.Threshold > 0 {
				ideom.Threshold = is.Threshold
			}
			if is.Decay > 0 {
				ideom.DecayRate = is.Decay
			}
			net.Add(ideom)
			ideoms++
		}
	}

	for _, doc := range docs {
		for _, is := range doc.Ideoms {
			for target, weight := range is.Connections {
				net.Upsert(target, target, "")
				if err := net.Connect(is.ID, target, weight, true); err != nil {
					log.Printf("[seed] connect %s->%s failed: %v", is.ID, target, err)
				}
			}
		}
		for _, ps := range doc.Prefabs {
			if ps.ID == "" || len(ps.Pattern) == 0 {
				log.Printf("[seed] skipping prefab %q with empty id or pattern", ps.Name)
				continue
			}
			name := ps.Name
			if name == "" {
				name = ps.ID
			}
			p := prefab.New(ps.ID, name, ps.Category, ps.Pattern)
			if ps.Threshold > 0 {
				p.Threshold = ps.Threshold
			}
			mgr.Add(p)
			prefabs++
		}
	}

	log.Printf("[seed] loaded %d ideoms, %d prefabs from %d files", ideoms, prefabs, len(files))
	return nil
}

func loadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &doc, nil
}
