package formcalc

import "strings"

// TokenTypes are the lexical classes of a formula.
type TokenTypes uint8

// values of TokenTypes
const (
	TKeof TokenTypes = 0 + iota
	TKnumber
	TKstring
	TKfield
	TKident
	TKop
	TKlparen
	TKrparen
	TKcomma
)

func (tt TokenTypes) String() string {
	return [...]string{"end of formula", "number", "string", "field", "name", "operator", "(", ")", ","}[tt]
}

// Token is one lexical element of a formula. Pos is its byte offset.
type Token struct {
	Type TokenTypes
	Text string
	Pos  int
}

// operators, two-character ones first so ">=" is not read as ">".
var operators = []string{">=", "<=", "==", "!=", "&&", "||", "+", "-", "*", "/", "^", "%", ">", "<", "=", "!"}

// Tokenize splits formula into tokens. The last token is always TKeof.
// Field labels sit in double quotes, text in single quotes.
func Tokenize(formula string) ([]Token, error) {
	var tokens []Token

	for ind := 0; ind < len(formula); {
		ch := formula[ind]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			ind++
		case ch == '"' || ch == '\'':
			end := strings.IndexByte(formula[ind+1:], ch)
			if end < 0 {
				return nil, newEvalError(EKparse, ind, "unterminated %c", ch)
			}

			tt := TKfield
			if ch == '\'' {
				tt = TKstring
			}

			tokens = append(tokens, Token{Type: tt, Text: formula[ind+1 : ind+1+end], Pos: ind})
			ind += end + 2
		case isDigit(ch) || (ch == '.' && ind+1 < len(formula) && isDigit(formula[ind+1])):
			start := ind
			ind = scanNumber(formula, ind)
			tokens = append(tokens, Token{Type: TKnumber, Text: formula[start:ind], Pos: start})
		case isLetter(ch):
			start := ind
			for ind < len(formula) && (isLetter(formula[ind]) || isDigit(formula[ind])) {
				ind++
			}

			tokens = append(tokens, Token{Type: TKident, Text: formula[start:ind], Pos: start})
		case ch == '(':
			tokens = append(tokens, Token{Type: TKlparen, Text: "(", Pos: ind})
			ind++
		case ch == ')':
			tokens = append(tokens, Token{Type: TKrparen, Text: ")", Pos: ind})
			ind++
		case ch == ',':
			tokens = append(tokens, Token{Type: TKcomma, Text: ",", Pos: ind})
			ind++
		default:
			op := matchOperator(formula[ind:])
			if op == "" {
				return nil, newEvalError(EKparse, ind, "unrecognized character %q", formula[ind:ind+1])
			}

			if op == "==" && strings.HasPrefix(formula[ind:], "===") {
				return nil, newEvalError(EKparse, ind, "unsupported operator ===")
			}

			tokens = append(tokens, Token{Type: TKop, Text: op, Pos: ind})
			ind += len(op)
		}
	}

	tokens = append(tokens, Token{Type: TKeof, Pos: len(formula)})

	return tokens, nil
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}

	return ""
}

func scanNumber(s string, ind int) int {
	for ind < len(s) && isDigit(s[ind]) {
		ind++
	}

	if ind < len(s) && s[ind] == '.' {
		ind++
		for ind < len(s) && isDigit(s[ind]) {
			ind++
		}
	}

	// exponent only if digits follow
	if ind < len(s) && (s[ind] == 'e' || s[ind] == 'E') {
		j := ind + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}

		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}

			ind = j
		}
	}

	return ind
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
