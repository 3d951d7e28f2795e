package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type compiledRule interface {
	Apply(input string) (output string, changed bool)
}

// RuleParser turns one line of a rules file into a rule.
type RuleParser interface {
	CanParse(line string) bool
	Parse(line string) (compiledRule, error)
}

func parseRules(contents string, parsers []RuleParser) ([]compiledRule, error) {
	var rules []compiledRule
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := parseLine(line, parsers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseLine(line string, parsers []RuleParser) (compiledRule, error) {
	for _, parser := range parsers {
		if parser.CanParse(line) {
			return parser.Parse(line)
		}
	}
	return nil, errors.New("unsupported rule format")
}

func defaultRuleParsers() []RuleParser {
	return []RuleParser{sedRuleParser{}, arrowRuleParser{}}
}

// arrowRuleParser reads "spoken words => replacement".
type arrowRuleParser struct{}

func (arrowRuleParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (arrowRuleParser) Parse(line string) (compiledRule, error) {
	from, to, _ := strings.Cut(line, "=>")
	return newLiteralRule(from, to)
}

// sedRuleParser reads s/pattern/replacement/flags with any punctuation delimiter.
type sedRuleParser struct{}

func (sedRuleParser) CanParse(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isWordOrSpace(line[1])
}

func (sedRuleParser) Parse(line string) (compiledRule, error) {
	return parseSedRule(line)
}

// literalRule matches case-insensitively and never inside a longer word.
type literalRule struct {
	re          *regexp.Regexp
	replacement string
}

func newLiteralRule(from, to string) (compiledRule, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("substitution source cannot be empty")
	}
	pattern := regexp.QuoteMeta(from)
	if isWordByte(from[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(from[len(from)-1]) {
		pattern += `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid substitution source: %w", err)
	}
	return literalRule{re: re, replacement: strings.TrimSpace(to)}, nil
}

func (r literalRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.replacement)
	return output, output != input
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func parseSedRule(line string) (compiledRule, error) {
	delim := line[1]
	pattern, pos, err := readDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := readDelimited(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}

	// Case-insensitive unless the rule says otherwise: transcripts have unreliable casing.
	modifiers := map[rune]bool{'i': true}
	global := false
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'g':
			global = true
		case 'I':
			modifiers['i'] = false
		case 'i', 'm', 's':
			modifiers[flag] = true
		case ' ':
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	var prefix strings.Builder
	for _, flag := range []rune{'i', 'm', 's'} {
		if modifiers[flag] {
			prefix.WriteRune(flag)
		}
	}
	if prefix.Len() > 0 {
		pattern = "(?" + prefix.String() + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: replacement, global: global}, nil
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	match := r.re.FindStringSubmatchIndex(input)
	if match == nil {
		return input, false
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, match)
	output := input[:match[0]] + string(expanded) + input[match[1]:]
	return output, output != input
}

// readDelimited returns the text up to the next unescaped delimiter and the
// position just after it. Escapes are kept for the regexp compiler.
func readDelimited(line string, start int, delim byte) (string, int, error) {
	var builder strings.Builder
	for index := start; index < len(line); index++ {
		char := line[index]
		switch {
		case char == '\\' && index+1 < len(line):
			if line[index+1] == delim {
				builder.WriteByte(delim)
			} else {
				builder.WriteByte(char)
				builder.WriteByte(line[index+1])
			}
			index++
		case char == delim:
			return builder.String(), index + 1, nil
		default:
			builder.WriteByte(char)
		}
	}
	return "", 0, errors.New("unterminated expression")
}

func isWordByte(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '_'
}

func isWordOrSpace(char byte) bool {
	return isWordByte(char) || char == ' ' || char == '\t'
}
