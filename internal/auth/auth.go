package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	Missing ErrorKind = "missing"
	Invalid ErrorKind = "invalid"
)

// Error is returned for every rejected credential.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == Missing {
		return "No valid token provided"
	}
	return "Invalid token"
}

func (e *Error) Unwrap() error { return e.Err }

// User is the identity attached to an authenticated request.
type User struct {
	ID string
}

// Verifier resolves a bearer token to a user id with an identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type VerifierFunc func(ctx context.Context, token string) (string, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// Gate turns an Authorization header into a User. It never retries.
type Gate struct {
	verifier Verifier
}

func NewGate(v Verifier) *Gate {
	return &Gate{verifier: v}
}

func (g *Gate) Authenticate(ctx context.Context, header string) (User, error) {
	token, ok := BearerToken(header)
	if !ok {
		return User{}, &Error{Kind: Missing}
	}
	id, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return User{}, &Error{Kind: Invalid, Err: err}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, &Error{Kind: Invalid, Err: errors.New("identity provider returned no user id")}
	}
	return User{ID: id}, nil
}

// BearerToken extracts the credential from "Bearer <token>".
func BearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}
	return token, true
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok && u.ID != ""
}

// Options selects and configures a Verifier backend.
type Options struct {
	Mode         string
	JWTSecret    string
	JWTAudience  string
	StaticTokens map[string]string
	SupabaseURL  string
	SupabaseKey  string
}

func NewVerifier(opts Options) (Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "jwt":
		return NewJWTVerifier(opts.JWTSecret, opts.JWTAudience)
	case "supabase":
		return NewSupabaseVerifier(opts.SupabaseURL, opts.SupabaseKey, nil)
	case "static":
		return NewStaticVerifier(opts.StaticTokens)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", opts.Mode)
	}
}
