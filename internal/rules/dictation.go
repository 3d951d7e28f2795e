package rules

import "regexp"

// punctuationRule turns a spoken command into a symbol and swallows the space
// before it, so "hello comma world" becomes "hello, world".
type punctuationRule struct {
	re     *regexp.Regexp
	symbol string
}

func (r punctuationRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.symbol)
	return output, output != input
}

func newPunctuationRule(spoken, symbol string) punctuationRule {
	return punctuationRule{re: regexp.MustCompile(`(?i)[ \t]*\b` + spoken + `\b[.,]?`), symbol: symbol}
}

func dictationCommands() []compiledRule {
	return []compiledRule{
		newPunctuationRule(`new paragraph`, "\n\n"),
		newPunctuationRule(`new line`, "\n"),
		newPunctuationRule(`full stop`, "."),
		newPunctuationRule(`comma`, ","),
		newPunctuationRule(`question mark`, "?"),
		newPunctuationRule(`exclamation mark`, "!"),
		newPunctuationRule(`colon`, ":"),
	}
}
