package http

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

// actorFromAuthorization validates an HS256 bearer token and returns its subject.
func (s *Server) actorFromAuthorization(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", eris.New("authorization header is not a bearer token")
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", eris.Wrap(err, "parsing bearer token")
	}
	if !parsed.Valid {
		return "", eris.New("bearer token is not valid")
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return "", eris.Wrap(err, "reading token subject")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", eris.New("bearer token has no subject")
	}
	return subject, nil
}
