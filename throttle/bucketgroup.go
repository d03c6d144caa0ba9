package throttle

import (
	"sync"
	"time"
)

type BucketGroup[K comparable] struct {
	conf    *BucketConf
	buckets *sync.Map // K -> *Bucket[K]
}

func (g *BucketGroup[K]) GetBucket(id K) (*Bucket[K], bool) {
	bAny, ok := g.buckets.Load(id)
	if !ok {
		return nil, false
	}
	return bAny.(*Bucket[K]), true
}

// Allow takes one token from id's bucket, creating a full bucket on first use
func (g *BucketGroup[K]) Allow(id K, now time.Time) bool {
	if b, ok := g.GetBucket(id); ok {
		return b.Allow(now)
	}
	fresh := &Bucket[K]{tokens: g.conf.Burst, lastCheck: now, parentGroup: g}
	bAny, _ := g.buckets.LoadOrStore(id, fresh) // a concurrent first request may have won
	return bAny.(*Bucket[K]).Allow(now)
}
