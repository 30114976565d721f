package timeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectVersion is the current project file format.
const ProjectVersion = 1

// Canvas is the output frame.
type Canvas struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	FPS    int `yaml:"fps" json:"fps"`
}

// Project is the on-disk editing session: the canvas, the items and the
// default transition.
type Project struct {
	Version    int           `yaml:"version"`
	Name       string        `yaml:"name,omitempty"`
	Canvas     Canvas        `yaml:"canvas"`
	Transition *TransitionID `yaml:"transition,omitempty"`
	Items      []MediaItem   `yaml:"items"`
}

// Descriptor builds the project's timeline.
func (p *Project) Descriptor(opts Options) (Descriptor, error) {
	return Build(p.Items, p.Transition, opts)
}

// WriteProject writes a project to a YAML file.
func WriteProject(p *Project, path string) error {
	if p.Version == 0 {
		p.Version = ProjectVersion
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create project dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadProject reads a project from a YAML file.
func ReadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}
	if p.Version > ProjectVersion {
		return nil, fmt.Errorf("project %s: unsupported version %d", path, p.Version)
	}
	return &p, nil
}

// GenerateProjectPath creates a timestamped project filename in dir.
func GenerateProjectPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("project_%s.yaml", now.Format("2006-01-02_15-04-05")))
}

// FindLatestProject finds the most recently modified project file in dir.
func FindLatestProject(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read projects directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var projects []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		projects = append(projects, candidate{path: filepath.Join(dir, name), mod: info.ModTime()})
	}

	if len(projects) == 0 {
		return "", fmt.Errorf("no project files found in %s", dir)
	}

	// newest first, name breaks ties
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].mod.Equal(projects[j].mod) {
			return projects[i].path > projects[j].path
		}
		return projects[i].mod.After(projects[j].mod)
	})

	return projects[0].path, nil
}
