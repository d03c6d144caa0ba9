package routing

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/zeptools/gw-impose/clients"
	"github.com/zeptools/gw-impose/requests"
	"github.com/zeptools/gw-impose/responses"
	"github.com/zeptools/gw-impose/sec"
)

// ClientRegistry looks up API clients by id
type ClientRegistry interface {
	GetClientAppConf(id string) (clients.ClientAppConf, bool)
}

// BearerAuth admits requests carrying an RS256 token from a registered client.
// The client conf is put in the request context.
type BearerAuth struct {
	Keys     sec.KeyResolver
	Clients  ClientRegistry
	Audience string
	Now      func() time.Time // nil = time.Now
}

// Ensure BearerAuth implements HandlerWrapper
var _ HandlerWrapper = (*BearerAuth)(nil)

func (a *BearerAuth) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		if a.Now != nil {
			now = a.Now()
		}
		token := sec.ExtractBearerToken(r.Header.Get("Authorization"))
		claims, err := sec.VerifyClientToken(token, a.Keys, a.Audience, now)
		if err != nil {
			if !errors.Is(err, sec.ErrNoBearer) {
				log.Printf("[WARN][AUTH] %s %s from %s: %v", r.Method, r.URL.Path, requests.ClientIP(r, true), err)
			}
			unauthorized(w, err)
			return
		}
		client, ok := a.Clients.GetClientAppConf(claims.ClientID)
		if !ok || client.Disabled || !client.AllowsKey(claims.KeyID) {
			log.Printf("[WARN][AUTH] client %q (kid %s) not admitted", claims.ClientID, claims.KeyID)
			responses.WriteSimpleErrorJSON(w, http.StatusForbidden, "client not allowed")
			return
		}
		inner.ServeHTTP(w, r.WithContext(clients.WithClientConf(r.Context(), client)))
	})
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	msg := "invalid token"
	switch {
	case errors.Is(err, sec.ErrNoBearer):
		w.Header().Set("WWW-Authenticate", "Bearer")
		msg = "missing bearer token"
	case errors.Is(err, sec.ErrTokenExpired):
		msg = "token expired"
	}
	responses.WriteSimpleErrorJSON(w, http.StatusUnauthorized, msg)
}

// RequireWrite rejects read-only clients. Wrap inside BearerAuth.
var RequireWrite HandlerWrapper = HandlerWrapperFunc(func(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, ok := clients.ClientConfFromContext(r.Context())
		if !ok || client.ReadOnly {
			responses.WriteSimpleErrorJSON(w, http.StatusForbidden, "client is read-only")
			return
		}
		inner.ServeHTTP(w, r)
	})
})
