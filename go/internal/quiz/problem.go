package quiz

// NumberSource draws uniform integers in [0, n).
// *math/rand/v2.Rand satisfies it.
type NumberSource interface {
	IntN(n int) int
}

// Problem is the pair of addends shown for one round.
type Problem struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Solution is derived from the addends on every call, never stored.
func (p Problem) Solution() int {
	return p.A + p.B
}

// NewProblem draws both addends from [0, upperBound).
func NewProblem(src NumberSource, upperBound int) Problem {
	return Problem{
		A: src.IntN(upperBound),
		B: src.IntN(upperBound),
	}
}
