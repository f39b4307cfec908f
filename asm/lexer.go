package asm

import (
	"fmt"
	"strings"
)

// Lex tokenizes source into a Token stream terminated by a single
// TokEOF. It is a hand-rolled scanner rather than the original's
// ordered-regex-table approach (original_source/translator.py's
// lexical_analysis) - same lexeme classes, but a switch over rune
// classes reads and is typo-proofed by the compiler instead of a
// dict-of-regexes whose iteration order happened to matter.
func Lex(source string) ([]Token, error) {
	var tokens []Token
	line, col := 1, 1
	runes := []rune(source)
	i := 0

	advance := func(n int) {
		for k := 0; k < n; k++ {
			if runes[i+k] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
		i += n
	}

	for i < len(runes) {
		r := runes[i]

		switch {
		case r == '\n':
			tokens = append(tokens, Token{TokEOL, "\n", line, col})
			advance(1)

		case r == ' ' || r == '\t' || r == '\r':
			advance(1)

		case r == ';':
			for i < len(runes) && runes[i] != '\n' {
				advance(1)
			}

		case strings.ContainsRune(":+-,()", r):
			tokens = append(tokens, Token{TokSymbol, string(r), line, col})
			advance(1)

		case r >= '0' && r <= '9':
			start, startLine, startCol := i, line, col
			for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
				advance(1)
			}
			tokens = append(tokens, Token{TokNumber, string(runes[start:i]), startLine, startCol})

		case r == '\'':
			startLine, startCol := line, col
			advance(1)
			valStart := i
			for i < len(runes) && runes[i] != '\'' {
				advance(1)
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("%w: unterminated char literal at %d:%d", errLexFailure, startLine, startCol)
			}
			val := string(runes[valStart:i])
			advance(1) // closing quote
			tokens = append(tokens, Token{TokChar, val, startLine, startCol})

		case isIdentStart(r):
			start, startLine, startCol := i, line, col
			for i < len(runes) && isIdentRune(runes[i]) {
				advance(1)
			}
			word := string(runes[start:i])
			typ := TokString
			if word == "section" {
				typ = TokKeyword
			}
			tokens = append(tokens, Token{typ, word, startLine, startCol})

		default:
			return nil, fmt.Errorf("%w: unexpected character %q at %d:%d", errLexFailure, r, line, col)
		}
	}

	tokens = append(tokens, Token{TokEOF, "", line, col})
	return tokens, nil
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '.'
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
