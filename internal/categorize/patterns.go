package categorize

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var builtinPatternsYAML []byte

// PatternSet is a category name and the expressions that select it.
type PatternSet struct {
	Category string   `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

type compiledSet struct {
	category string // lower-cased
	res      []*regexp.Regexp
}

// ParsePatterns decodes and compiles a pattern table. Order is preserved.
func ParsePatterns(data []byte) ([]PatternSet, error) {
	var sets []PatternSet
	if err := yaml.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parsing pattern table: %w", err)
	}
	if _, err := compilePatterns(sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// BuiltinPatterns returns the embedded pattern table.
func BuiltinPatterns() []PatternSet {
	sets, err := ParsePatterns(builtinPatternsYAML)
	if err != nil {
		panic("embedded patterns.yaml: " + err.Error())
	}
	return sets
}

func compilePatterns(sets []PatternSet) ([]compiledSet, error) {
	out := make([]compiledSet, 0, len(sets))
	for _, s := range sets {
		cs := compiledSet{category: strings.ToLower(strings.TrimSpace(s.Category))}
		for _, p := range s.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q for %s: %w", p, s.Category, err)
			}
			cs.res = append(cs.res, re)
		}
		out = append(out, cs)
	}
	return out, nil
}
