package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan lists the per-source word lists imported by one run.
type Plan struct {
	Sources []PlanEntry `yaml:"sources"`
}

// PlanEntry binds a source tag to a word list.
type PlanEntry struct {
	Tag  string `yaml:"tag"`
	Path string `yaml:"path"`
}

// DefaultPlan is the exam vocabulary set shipped under scripts/data.
func DefaultPlan() *Plan {
	dir := filepath.Join("scripts", "data")
	return &Plan{Sources: []PlanEntry{
		{Tag: "高中", Path: filepath.Join(dir, "2_高中-乱序 copy.txt")},
		{Tag: "考研", Path: filepath.Join(dir, "5_考研-乱序 copy.txt")},
		{Tag: "托福", Path: filepath.Join(dir, "6_托福-乱序 copy.txt")},
	}}
}

// LoadPlan reads a YAML plan. Relative paths resolve against the plan
// file's directory.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	var p Plan
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range p.Sources {
		e := &p.Sources[i]
		if e.Path != "" && !filepath.IsAbs(e.Path) && !strings.Contains(e.Path, "://") {
			e.Path = filepath.Join(base, e.Path)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return &p, nil
}

// Validate rejects empty plans and entries missing a tag or path.
func (p *Plan) Validate() error {
	if len(p.Sources) == 0 {
		return fmt.Errorf("no sources listed")
	}
	for i, e := range p.Sources {
		if strings.TrimSpace(e.Tag) == "" {
			return fmt.Errorf("source %d has no tag", i+1)
		}
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("source %s has no path", e.Tag)
		}
	}
	return nil
}
