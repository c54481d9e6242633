package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// TargetEntry is one monitoring target in a targets file.
type TargetEntry struct {
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	RiskLevel string `yaml:"risk_level"`
	URL       string `yaml:"url"`
	Enabled   *bool  `yaml:"enabled"` // defaults to true when omitted
}

// IsEnabled returns the enabled flag, treating an omitted value as true.
func (e TargetEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// TargetsFile is the YAML document imported by `shield target import`:
//
//	targets:
//	  - name: example-forum
//	    category: forum
//	    risk_level: high
//	    url: https://forum.example.com/latest
type TargetsFile struct {
	Targets []TargetEntry `yaml:"targets"`
}

// ReadTargets decodes a targets document.
func ReadTargets(r io.Reader) ([]TargetEntry, error) {
	var doc TargetsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode targets: %w", err)
	}

	seen := make(map[string]bool, len(doc.Targets))
	for i, t := range doc.Targets {
		if t.Name == "" {
			return nil, fmt.Errorf("target %d: name is required", i+1)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate target name: %s", t.Name)
		}
		seen[t.Name] = true
	}
	return doc.Targets, nil
}

// ReadTargetsFromFile reads a targets document from path.
func ReadTargetsFromFile(path string) ([]TargetEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer f.Close()

	entries, err := ReadTargets(f)
	if err != nil {
		return nil, fmt.Errorf("reading targets from %s: %w", path, err)
	}
	return entries, nil
}
