package auth

import "golang.org/x/crypto/bcrypt"

// MinPasswordLength: для регистрации и сброса пароля.
const MinPasswordLength = 6

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword: false и при неверном пароле, и при битом хэше.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
