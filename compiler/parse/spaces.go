package parse

type (
	Spaces uint64
)

var (
	Space    = NewSpaces(' ')
	SpaceTab = NewSpaces(' ', '\t', '\r')
	SpaceAll = NewSpaces(' ', '\t', '\r', '\n')
)

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Is(c byte) bool {
	return c < 64 && s&(1<<c) != 0
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && s.Is(b[i]) {
		i++
	}

	return
}

// Word returns the end of the run of non space chars starting at st.
func (s Spaces) Word(b []byte, st int) (i int) {
	i = st

	for i < len(b) && !s.Is(b[i]) && b[i] != '\n' {
		i++
	}

	return
}
