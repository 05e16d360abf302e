package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// GeneratePin -> PIN verifikasi 4 digit dari crypto/rand
func GeneratePin() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// rand.Reader praktis tidak pernah gagal; fallback PIN statis
		// lebih buruk daripada panic saat setup
		panic(err)
	}
	return fmt.Sprintf("%04d", n.Int64())
}

// GenerateAccessToken -> token opaque untuk QR code meja
func GenerateAccessToken() string {
	return uuid.NewString()
}
