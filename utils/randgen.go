package utils

import (
	"github.com/dchest/uniuri"
)

// GenerateAdminKey returns a securely randomly generated key for the review API
func GenerateAdminKey() string {
	return uniuri.NewLenChars(32, []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"))
}
