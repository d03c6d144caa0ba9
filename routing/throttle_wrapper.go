package routing

import (
	"log"
	"net/http"
	"time"

	"github.com/zeptools/gw-impose/clients"
	"github.com/zeptools/gw-impose/requests"
	"github.com/zeptools/gw-impose/responses"
	"github.com/zeptools/gw-impose/throttle"
)

// Throttle takes one token per request from the caller's bucket in Group.
// Callers are keyed by client id when BearerAuth ran first, else by IP.
type Throttle struct {
	Store      *throttle.BucketStore[string]
	Group      string
	TrustProxy bool             // key anonymous callers by X-Forwarded-For
	Now        func() time.Time // nil = time.Now
}

// Ensure Throttle implements HandlerWrapper
var _ HandlerWrapper = (*Throttle)(nil)

func (t *Throttle) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		if t.Now != nil {
			now = t.Now()
		}
		key := "ip:" + requests.ClientIP(r, t.TrustProxy)
		if client, ok := clients.ClientConfFromContext(r.Context()); ok {
			key = "client:" + client.ID
		}
		if !t.Store.Allow(t.Group, key, now) {
			log.Printf("[WARN][THROTTLE] %s over %s limit", key, t.Group)
			responses.WriteSimpleErrorJSON(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		inner.ServeHTTP(w, r)
	})
}
