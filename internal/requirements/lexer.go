package requirements

import (
	"errors"
	"regexp"
	"strings"
)

// Designator is one subject on the left of the colon: its name as written
// and every three-digit code found in it, parenthesised or bare.
type Designator struct {
	Name  string
	Codes []string
}

type lexerState int

const (
	lexerName lexerState = iota
	lexerCode
	lexerAfterCode
)

var (
	errUnclosedParen   = errors.New("unclosed '(' in subject list")
	errUnexpectedParen = errors.New("unexpected ')' in subject list")
	errNestedParen     = errors.New("nested '(' in subject list")
)

var codeInText = regexp.MustCompile(`\b\d{3}\b`)

// Tokenize splits a normalised subject list on '/' into designators. The
// name is the text before the first '('. Codes are collected from the whole
// designator, so "ENG(101) or KIS(102)" and "121" both yield codes.
func Tokenize(subjectList string) ([]Designator, error) {
	state := lexerName
	var name, text strings.Builder
	var out []Designator

	emit := func() {
		d := Designator{
			Name:  strings.TrimSpace(name.String()),
			Codes: codeInText.FindAllString(text.String(), -1),
		}
		if d.Name != "" || len(d.Codes) > 0 {
			out = append(out, d)
		}
		name.Reset()
		text.Reset()
	}

	for _, char := range subjectList {
		if char == '/' && state != lexerCode {
			emit()
			state = lexerName
			continue
		}
		switch state {
		case lexerName:
			switch char {
			case '(':
				state = lexerCode
			case ')':
				return nil, errUnexpectedParen
			default:
				name.WriteRune(char)
			}
		case lexerCode:
			switch char {
			case ')':
				state = lexerAfterCode
			case '(':
				return nil, errNestedParen
			}
		case lexerAfterCode:
			switch char {
			case '(':
				state = lexerCode
			case ')':
				return nil, errUnexpectedParen
			}
		}
		// parentheses become spaces so "(121)" and "121" read the same
		if char == '(' || char == ')' {
			text.WriteRune(' ')
			continue
		}
		text.WriteRune(char)
	}
	if state == lexerCode {
		return nil, errUnclosedParen
	}
	emit()
	return out, nil
}
