// Package auth checks dashboard access codes and manages bearer sessions.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized   = errors.New("auth: unauthorized")
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrUnauthorized)
)

// Validator checks a practitioner access code.
type Validator interface {
	Validate(code string) error
}

// StaticCode accepts a single shared plaintext code. Development only.
type StaticCode struct {
	Code string
}

func (s StaticCode) Validate(code string) error {
	if s.Code == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Code), []byte(code)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// BcryptCode accepts codes matching a bcrypt hash.
type BcryptCode struct {
	Hash string
}

func (b BcryptCode) Validate(code string) error {
	if b.Hash == "" || code == "" {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(b.Hash), []byte(code)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// AnyCode accepts every non-blank code.
type AnyCode struct{}

func (AnyCode) Validate(code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(code string) error

func (f FuncValidator) Validate(code string) error {
	return f(code)
}

// NewValidator picks the strictest validator the settings allow.
// open reports that any non-blank code will be accepted.
func NewValidator(hash, code string) (v Validator, open bool) {
	switch {
	case hash != "":
		return BcryptCode{Hash: hash}, false
	case code != "":
		return StaticCode{Code: code}, false
	default:
		return AnyCode{}, true
	}
}

// HashCode returns the bcrypt hash to store as auth.access_code_hash.
func HashCode(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", errors.New("auth: empty access code")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash access code: %w", err)
	}
	return string(h), nil
}
