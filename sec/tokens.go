package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoBearer = errors.New("missing bearer token")

func ExtractBearerToken(header string) string {
	const prefix = "Bearer "
	prefixLen := len(prefix)
	if len(header) > prefixLen && strings.EqualFold(header[:prefixLen], prefix) {
		return strings.TrimSpace(header[prefixLen:])
	}
	return ""
}

// ClientClaims identifies the API client a verified token was issued to
type ClientClaims struct {
	ClientID string // sub
	KeyID    string // kid header
	Expires  time.Time
}

// SignClientToken issues an RS256 access token for an API client.
// sub: client id
// aud: the imposition service's audience string
func SignClientToken(clientID string, audience string, privateKey *rsa.PrivateKey, kid string, now time.Time, expDuration time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expDuration)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	return token.SignedString(privateKey)
}

// VerifyClientToken checks an RS256 token against the key named by its kid header.
// An empty audience skips the aud check.
func VerifyClientToken(signedToken string, keys KeyResolver, audience string, now time.Time) (*ClientClaims, error) {
	if signedToken == "" {
		return nil, ErrNoBearer
	}
	var kid string
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(signedToken, &claims, func(token *jwt.Token) (any, error) {
		kid, _ = token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid")
		}
		return keys.PublicKey(kid)
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, ErrUnknownKey) {
			return nil, ErrUnknownKey
		}
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrBadToken)
	}
	return &ClientClaims{ClientID: claims.Subject, KeyID: kid, Expires: claims.ExpiresAt.Time}, nil
}
