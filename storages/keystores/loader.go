// Package keystores feeds the bearer-token key ring from the local public key
// directory and, optionally, from the storefront's published key set.
package keystores

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/zeptools/gw-impose/sec"
)

type Loader struct {
	Conf   Conf
	Ring   *sec.KeyRing
	Remote func(ctx context.Context) (*sec.JWKS, error) // nil = local keys only

	mu         sync.Mutex
	lastRemote *sec.JWKS // served while the remote is unreachable
}

func NewLoader(conf Conf, ring *sec.KeyRing, remote func(ctx context.Context) (*sec.JWKS, error)) *Loader {
	if !conf.StorefrontJWKS {
		remote = nil
	}
	return &Loader{Conf: conf, Ring: ring, Remote: remote}
}

// Reload rebuilds the ring. A failing remote keeps its last good key set.
func (l *Loader) Reload(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var local *sec.JWKS
	if l.Conf.PublicKeyDir != "" {
		set, err := sec.LoadPublicPEMKeysAsJWKS(l.Conf.PublicKeyDir)
		if err != nil {
			return 0, fmt.Errorf("local keys: %w", err)
		}
		local = set
	}
	if l.Remote != nil {
		set, err := l.Remote(ctx)
		switch {
		case err != nil && l.lastRemote == nil:
			log.Printf("[WARN][KEYS] storefront keys unavailable: %v", err)
		case err != nil:
			log.Printf("[WARN][KEYS] storefront keys unavailable, keeping %d cached: %v", len(l.lastRemote.Keys), err)
		default:
			l.lastRemote = set
		}
	}
	n, err := l.Ring.Replace(local, l.lastRemote)
	if err != nil {
		return 0, err
	}
	log.Printf("[INFO][KEYS] %d verification keys loaded", n)
	return n, nil
}
