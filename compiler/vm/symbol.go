package vm

import (
	"tlog.app/go/errors"
)

// Symbol is a label, function or variable name.
// It is any sequence of letters, digits, '_', '.', '$' and ':' not starting with a digit.
type Symbol string

var ErrBadSymbol = errors.New("bad symbol")

func ParseSymbol(s string) (Symbol, error) {
	x := Symbol(s)

	if err := x.Validate(); err != nil {
		return "", err
	}

	return x, nil
}

func (s Symbol) Validate() error {
	if s == "" {
		return errors.Wrap(ErrBadSymbol, "empty")
	}

	if c := s[0]; c >= '0' && c <= '9' {
		return errors.Wrap(ErrBadSymbol, "%q starts with digit", string(s))
	}

	for i := 0; i < len(s); i++ {
		if !symbolChar(s[i]) {
			return errors.Wrap(ErrBadSymbol, "%q: disallowed char %q", string(s), s[i])
		}
	}

	return nil
}

func symbolChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '.', c == '$', c == ':':
		return true
	}

	return false
}
