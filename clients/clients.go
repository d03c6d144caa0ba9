package clients

import (
	"context"
	"slices"
)

// ClientAppConf is one API client from .clients.json, keyed by the client id
// that appears as the sub claim of its bearer tokens
type ClientAppConf struct {
	ID       string   `json:"-"` // filled with a key from .clients.json
	Name     string   `json:"name"`
	KeyIDs   []string `json:"key_ids"`   // kids this client signs with. empty = any known key
	ReadOnly bool     `json:"read_only"` // may plan and read status but not submit jobs
	Callback bool     `json:"callback"`  // post finished job results to the storefront API
	Disabled bool     `json:"disabled"`
}

func (c ClientAppConf) AllowsKey(kid string) bool {
	return len(c.KeyIDs) == 0 || slices.Contains(c.KeyIDs, kid)
}

// Ctx Access Helpers

type ctxKey struct{}

func WithClientConf(ctx context.Context, conf ClientAppConf) context.Context {
	return context.WithValue(ctx, ctxKey{}, conf)
}

func ClientConfFromContext(ctx context.Context) (ClientAppConf, bool) {
	ctxVal := ctx.Value(ctxKey{})
	val, ok := ctxVal.(ClientAppConf)
	return val, ok
}
