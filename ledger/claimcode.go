package ledger

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	codeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength       = 8
	maxCodeAttempts  = 16
	defaultCodeStart = "TC-"
)

var randReader io.Reader = rand.Reader

// secureIntn returns a uniform random int in [0, n) using crypto/rand.
// It panics if the system source fails.
func secureIntn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(randReader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("ledger: crypto/rand failed: %v", err))
	}
	return int(v.Int64())
}

// RandomSuffix returns codeLength characters from A-Z0-9.
func RandomSuffix() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[secureIntn(len(codeAlphabet))]
	}
	return string(b)
}
