package model

import (
	"fmt"
	"regexp"
	"strings"
)

// RegexPrefix marks a tag pattern holding a regular expression.
const RegexPrefix = "regex:"

// TagPattern is a selected-tag key: a literal class name or
// "regex:<pattern>".
type TagPattern string

// IsRegex reports whether the pattern is a regular expression.
func (p TagPattern) IsRegex() bool {
	return strings.HasPrefix(string(p), RegexPrefix)
}

// Expression returns the regular expression without its prefix, or the
// literal class name.
func (p TagPattern) Expression() string {
	return strings.TrimPrefix(string(p), RegexPrefix)
}

// Compile validates a regex pattern. Literal patterns return a nil regexp.
func (p TagPattern) Compile() (*regexp.Regexp, error) {
	if !p.IsRegex() {
		return nil, nil
	}
	re, err := regexp.Compile(p.Expression())
	if err != nil {
		return nil, fmt.Errorf("invalid tag pattern %q: %w", string(p), err)
	}
	return re, nil
}

// Matches reports whether cssClass satisfies the pattern. Literal patterns
// compare exactly.
func (p TagPattern) Matches(cssClass string) (bool, error) {
	if !p.IsRegex() {
		return string(p) == cssClass, nil
	}
	re, err := p.Compile()
	if err != nil {
		return false, err
	}
	return re.MatchString(cssClass), nil
}
