package sanitize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads a YAML rule list:
//
//	rules:
//	  - name: reasoning_block
//	    pattern: '(?is)<think[^>]*>.*?</think>'
//	    replace: ''
//
// An empty path returns the default sanitizer. Rules are expected to remove
// or shorten text; a replacement longer than its match can keep the passes
// from settling, which Clean reports as a warning.
func Load(path string) (*Sanitizer, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sanitize rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rule list and compiles it.
func Parse(data []byte) (*Sanitizer, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sanitize rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("parse sanitize rules: no rules defined")
	}
	return New(f.Rules)
}
