package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// StaticVerifier accepts a fixed token set. Development only.
type StaticVerifier struct {
	tokens map[string]string
}

func NewStaticVerifier(tokens map[string]string) (*StaticVerifier, error) {
	if len(tokens) == 0 {
		return nil, errors.New("static verifier requires at least one token")
	}
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &StaticVerifier{tokens: cp}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	for candidate, user := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return user, nil
		}
	}
	return "", errors.New("unknown token")
}
