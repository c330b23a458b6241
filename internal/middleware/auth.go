// Package middleware provides HTTP middleware for the cloud-ingest API:
// bearer-token extraction, request ids, and rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/golang-jwt/jwt/v5"
)

// bearerRe matches an Authorization header of the form "Bearer <token>".
var bearerRe = regexp.MustCompile(`^\s*Bearer\s+(?P<access_token>[^\s]*)$`)

type accessTokenKey struct{}
type principalKey struct{}

// WithAccessToken stores the caller's access token in the context.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext extracts the caller's access token from the
// context.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok
}

// WithPrincipal stores the authenticated principal name in the context.
func WithPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, principalKey{}, name)
}

// PrincipalFromContext extracts the authenticated principal name from the
// context.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(principalKey{}).(string)
	return name, ok
}

// ExtractAccessToken parses the token out of an Authorization header value.
// ok is false when the header does not have the Bearer form.
func ExtractAccessToken(header string) (token string, ok bool) {
	m := bearerRe.FindStringSubmatch(header)
	if m == nil {
		return "", false
	}
	return m[bearerRe.SubexpIndex("access_token")], true
}

// Auth extracts the bearer token from the Authorization header and stores
// it in the request context. A missing header is 401; a header that is not
// in Bearer form is 400. When jwtSecret is non-empty the token must also be
// a valid HS256 JWT, and its subject is stored as the principal.
func Auth(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}
			token, ok := ExtractAccessToken(header)
			if !ok || token == "" {
				writeAuthError(w, http.StatusBadRequest, "Authorization header must have the form 'Bearer <token>'")
				return
			}

			ctx := WithAccessToken(r.Context(), token)
			if len(jwtSecret) > 0 {
				sub, err := verifyJWT(token, jwtSecret)
				if err != nil {
					writeAuthError(w, http.StatusUnauthorized, "invalid bearer token")
					return
				}
				ctx = WithPrincipal(ctx, sub)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// verifyJWT validates an HS256 token and returns its subject claim.
func verifyJWT(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return sub, nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
