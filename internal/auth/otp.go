package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strconv"
	"time"
)

// GenerateOTP: шестизначный код 100000..999999.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// OTPMatches: точное совпадение и now <= expires. Причину отказа не различаем.
func OTPMatches(stored *string, expires *time.Time, given string, now time.Time) bool {
	if stored == nil || expires == nil || given == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(*stored), []byte(given)) != 1 {
		return false
	}
	return !now.After(*expires)
}
