package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingIdentity = errors.New("bearer token or X-User-Id header is required")
	errInvalidToken    = errors.New("invalid bearer token")
)

// Authenticator resolves the acting user of a request. With a secret set,
// only HS256 bearer tokens are trusted and the user is the token subject.
// Without one the server sits behind a gateway that sets X-User-Id.
type Authenticator struct {
	Secret []byte
}

func (a Authenticator) ResolveUser(r *http.Request) (string, error) {
	if len(a.Secret) == 0 {
		if userID := strings.TrimSpace(r.Header.Get("X-User-Id")); userID != "" {
			return userID, nil
		}
		return "", errMissingIdentity
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(raw) == "" {
		return "", errMissingIdentity
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", errInvalidToken
	}
	return strings.TrimSpace(subject), nil
}
