package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge_base.yaml
var defaultKnowledgeBaseYAML []byte

// KnowledgeBaseFile defines the structure of knowledge_base.yaml
type KnowledgeBaseFile struct {
	Version    string              `yaml:"version"`
	Hypotheses []HypothesisEntry   `yaml:"hypotheses"`
	Symptoms   []SymptomEntry      `yaml:"symptoms"`
	Templates  []TextTemplateEntry `yaml:"templates"`
}

// HypothesisEntry is one diagnostic goal. Symptoms are listed in question order.
type HypothesisEntry struct {
	ID           int      `yaml:"id"`
	Code         string   `yaml:"code"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	ThresholdMin float64  `yaml:"threshold_min"`
	ThresholdMax float64  `yaml:"threshold_max"`
	Symptoms     []string `yaml:"symptoms"`
	Requires     []string `yaml:"requires,omitempty"` // sub-goal hypothesis codes
}

// SymptomEntry is a single question with its expert certainty factor
type SymptomEntry struct {
	ID       int     `yaml:"id"`
	Code     string  `yaml:"code"`
	Text     string  `yaml:"text"`
	CFExpert float64 `yaml:"cf_expert"`
}

// TextTemplateEntry maps (hypothesis, level) to the texts shown with a result
type TextTemplateEntry struct {
	Hypothesis     string `yaml:"hypothesis"`
	Level          string `yaml:"level"`
	Diagnosis      string `yaml:"diagnosis"`
	Recommendation string `yaml:"recommendation"`
}

// LoadKnowledgeBase reads the knowledge base from path, or the embedded default when path is empty.
func LoadKnowledgeBase(path string) (*KnowledgeBaseFile, error) {
	data := defaultKnowledgeBaseYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
		}
	}
	return ParseKnowledgeBase(data)
}

// ParseKnowledgeBase decodes YAML, rejecting unknown fields so typos in rule data fail loudly.
func ParseKnowledgeBase(data []byte) (*KnowledgeBaseFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var kb KnowledgeBaseFile
	if err := dec.Decode(&kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base YAML: %w", err)
	}
	return &kb, nil
}
