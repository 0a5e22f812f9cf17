// Package sanitize strips model artefacts from translated text before it is
// spoken. The passes are plain data so they can be retuned without code
// changes when the upstream model drifts.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Rule is one pattern/replacement pass. Replace follows regexp.Expand syntax.
type Rule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

// DefaultRules is the pass list tuned for the Qwen based Tajik translator.
// Order matters: reasoning markers go before label prefixes.
var DefaultRules = []Rule{
	{Name: "reasoning_block", Pattern: `(?is)<think[^>]*>.*?</think>`},
	{Name: "reasoning_marker", Pattern: `(?i)</?think[^>]*>`},
	{Name: "label_prefix", Pattern: `(?i)^\s*(?:(?:Translation:|Output:|Тарҷума:|Text:|Input:|Wrong:|Correct:)\s*)+`},
	{Name: "aside_explanation", Pattern: `(?i)\([^)]*тавзеҳот[^)]*\)`},
	{Name: "aside_source", Pattern: `(?i)\([^)]*омадааст[^)]*\)`},
	{Name: "dialogue_attribution", Pattern: `(?i)\s*-\s*Падар.*$`},
	{Name: "filler_hearing", Pattern: `(?i)Ман туро мешунавам[^.]*\.`},
	{Name: "filler_phrases", Pattern: `(?i)(?:буданаш маълум шуд|дар рӯшноӣ)`},
	{Name: "collapse_space", Pattern: `\s+`, Replace: " "},
	{Name: "space_before_punct", Pattern: `\s+([,.!?])`, Replace: "$1"},
}

type pass struct {
	name    string
	re      *regexp.Regexp
	replace string
}

// Sanitizer applies a compiled rule list. It is safe for concurrent use.
type Sanitizer struct {
	passes []pass
	log    logrus.FieldLogger
}

// New compiles rules. An empty list yields a sanitizer that only trims.
func New(rules []Rule) (*Sanitizer, error) {
	s := &Sanitizer{passes: make([]pass, 0, len(rules)), log: logrus.StandardLogger()}
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize rule %d (%s): %w", i, r.Name, err)
		}
		s.passes = append(s.passes, pass{name: r.Name, re: re, replace: r.Replace})
	}
	return s, nil
}

// Default returns a sanitizer over DefaultRules.
func Default() *Sanitizer {
	s, err := New(DefaultRules)
	if err != nil {
		panic(err)
	}
	return s
}

// SetLogger replaces the logger used to report rule lists that do not settle.
func (s *Sanitizer) SetLogger(l logrus.FieldLogger) {
	if l != nil {
		s.log = l
	}
}

// Clean runs the pass list until the text stops changing, so the result is a
// fixed point: Clean(Clean(x)) == Clean(x). Removal passes only shorten the
// text, which bounds the number of rounds by its length.
//
// A rule list that grows the text or cycles has no such bound. Clean then
// stops before the first round that grows the text, or after len(text)+1
// rounds, and logs a warning; the result is not a fixed point.
func (s *Sanitizer) Clean(text string) string {
	out, settled := s.clean(text)
	if !settled && s.log != nil {
		s.log.WithFields(logrus.Fields{"passes": len(s.passes), "chars": len(text)}).
			Warn("sanitize rules did not reach a fixed point")
	}
	return out
}

func (s *Sanitizer) clean(text string) (string, bool) {
	cur := s.once(text)
	for i := 0; i <= len(text); i++ {
		next := s.once(cur)
		if next == cur {
			return cur, true
		}
		if len(next) > len(cur) {
			return cur, false
		}
		cur = next
	}
	return cur, false
}

func (s *Sanitizer) once(text string) string {
	for _, p := range s.passes {
		text = p.re.ReplaceAllString(text, p.replace)
	}
	return strings.TrimSpace(text)
}

// Len reports the number of passes.
func (s *Sanitizer) Len() int { return len(s.passes) }
