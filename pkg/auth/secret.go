package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminSecret сравнивает ввод с bcrypt-хешем общего секрета администратора.
type AdminSecret struct {
	hash []byte
}

func NewAdminSecret(hash string) (*AdminSecret, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("некорректный хеш секрета администратора: %w", err)
	}
	return &AdminSecret{hash: []byte(hash)}, nil
}

func (a *AdminSecret) Matches(input string) bool {
	if input == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword(a.hash, []byte(input))
	return err == nil
}

func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("пустой секрет")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
