package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordProblems lists the strength rules the password breaks, empty when it passes.
func PasswordProblems(password string) []string {
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "must be at least 8 characters")
	}
	if !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !digit {
		problems = append(problems, "must contain a digit")
	}
	if !symbol {
		problems = append(problems, "must contain a symbol")
	}
	return problems
}
