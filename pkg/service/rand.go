package service

import (
	"crypto/rand"
	"fmt"
)

// Flipper draws a single unbiased bit per call. It decides which player
// moves first, so a predictable or reused source is not acceptable.
type Flipper interface {
	Flip() (bool, error)
}

// CryptoFlipper draws from crypto/rand.
type CryptoFlipper struct{}

func NewCryptoFlipper() *CryptoFlipper {
	return &CryptoFlipper{}
}

func (f *CryptoFlipper) Flip() (bool, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return false, fmt.Errorf("failed to read random byte: %v", err)
	}
	return b[0]&1 == 1, nil
}
