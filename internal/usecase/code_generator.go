package usecase

import (
	"crypto/rand"
	"io"
	"strings"
)

// codeAlphabet avoids ambiguous characters like O/0 and I/1.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateCode creates a random, human-readable redeem code: PREFIX-XXXXXXXX.
func generateCode(prefix string) (string, error) {
	const length = 8

	buf := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}

	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return string(buf), nil
	}
	return prefix + "-" + string(buf), nil
}
