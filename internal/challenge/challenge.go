package challenge

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
)

// Operator is the closed set of arithmetic operators a challenge may use.
type Operator uint8

const (
	OpAdd Operator = iota
	OpSub
)

var ErrInvalidRange = errors.New("invalid operand range")

// Challenge is a single arithmetic question. The expected answer is derived,
// never stored as text, and evaluation goes through the operator switch.
type Challenge struct {
	A  int
	B  int
	Op Operator
}

// New generates a challenge with both operands drawn uniformly from
// [min, max]. Subtraction is only picked when allowSub is set.
func New(min, max int, allowSub bool) (Challenge, error) {
	if min < 0 || max < min {
		return Challenge{}, ErrInvalidRange
	}

	a, err := randomInRange(min, max)
	if err != nil {
		return Challenge{}, err
	}
	b, err := randomInRange(min, max)
	if err != nil {
		return Challenge{}, err
	}

	op := OpAdd
	if allowSub {
		pick, err := randomInRange(0, 1)
		if err != nil {
			return Challenge{}, err
		}
		if pick == 1 {
			op = OpSub
		}
	}

	return Challenge{A: a, B: b, Op: op}, nil
}

// Answer evaluates the challenge. Unknown operators fall through to zero
// and can only happen with a corrupted record.
func (c Challenge) Answer() int {
	switch c.Op {
	case OpAdd:
		return c.A + c.B
	case OpSub:
		return c.A - c.B
	default:
		return 0
	}
}

// Prompt renders the question in the "a op b = ?" form shown to users.
func (c Challenge) Prompt() string {
	op := "+"
	if c.Op == OpSub {
		op = "-"
	}
	return strconv.Itoa(c.A) + " " + op + " " + strconv.Itoa(c.B) + " = ?"
}

func randomInRange(min, max int) (int, error) {
	if max == min {
		return min, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, err
	}
	return min + int(n.Int64()), nil
}
