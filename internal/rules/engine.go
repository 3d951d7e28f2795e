package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"voxkey/internal/logger"
)

const defaultLoopLimit = 30

// Substitution is a literal replacement declared inline in the config file.
type Substitution struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// Config selects where transcript rules come from. File rules run first, then
// inline substitutions, then dictation commands.
type Config struct {
	Path              string
	Substitutions     []Substitution
	DictationCommands bool
	LoopLimit         int
	Parsers           []RuleParser
}

// Engine rewrites finished transcripts until no rule changes them any more.
type Engine struct {
	rules     []compiledRule
	loopLimit int
	log       *logger.Logger
}

func NewEngine(cfg Config, log *logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.LoopLimit <= 0 {
		cfg.LoopLimit = defaultLoopLimit
	}
	parsers := cfg.Parsers
	if len(parsers) == 0 {
		parsers = defaultRuleParsers()
	}

	var rules []compiledRule
	fileRules, err := loadRuleFile(cfg.Path, parsers)
	if err != nil {
		return nil, err
	}
	rules = append(rules, fileRules...)

	for i, sub := range cfg.Substitutions {
		rule, err := newLiteralRule(sub.From, sub.To)
		if err != nil {
			return nil, fmt.Errorf("substitution %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	if cfg.DictationCommands {
		rules = append(rules, dictationCommands()...)
	}

	log.Debug("Transcript rules loaded", logger.Int("count", len(rules)), logger.String("path", cfg.Path))
	return &Engine{rules: rules, loopLimit: cfg.LoopLimit, log: log}, nil
}

func loadRuleFile(path string, parsers []RuleParser) ([]compiledRule, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}
	rules, err := parseRules(string(contents), parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return rules, nil
}

// Len reports how many rules are active.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply runs every rule in order, repeating the pass until the text is stable or
// the loop limit is hit. Rules that feed each other endlessly stop at the limit.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for pass := 0; pass < e.loopLimit; pass++ {
		changed := false
		for _, rule := range e.rules {
			if next, ok := rule.Apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			return tidy(result), nil
		}
	}

	e.log.Warn("Transcript rules did not settle", logger.Int("loop_limit", e.loopLimit))
	return tidy(result), nil
}

// tidy removes the spaces that dictation commands leave around line breaks.
func tidy(text string) string {
	if !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
