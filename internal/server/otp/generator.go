// Package otp produces one-time passcodes. Persistence lives in otp/store and
// delivery in otp/sender.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/dmitrijs2005/credcore/internal/common"
)

const (
	DefaultLength = 6
	// MaxLength keeps 10^n inside int64.
	MaxLength = 18
)

// Generator yields uniformly random, zero-padded numeric codes of a fixed length.
type Generator struct {
	length int
	max    *big.Int
}

func NewGenerator(length int) (*Generator, error) {
	if length < 1 || length > MaxLength {
		return nil, fmt.Errorf("%w: otp length %d out of range 1..%d", common.ErrInvalidConfiguration, length, MaxLength)
	}
	return &Generator{
		length: length,
		max:    new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil),
	}, nil
}

func (g *Generator) Length() int {
	return g.length
}

func (g *Generator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, g.max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", g.length, n.Int64()), nil
}

// Message is the text delivered to the recipient. The lifetime is stated in
// whole minutes, rounded up and never below one.
func Message(code string, ttl time.Duration) string {
	mins := int((ttl + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	unit := "minutes"
	if mins == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Your one-time passcode is %s. It is valid for %d %s.", code, mins, unit)
}
