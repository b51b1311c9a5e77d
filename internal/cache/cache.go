// Package cache implements the resolver's single-writer / many-reader
// record store: a read-optimized snapshot that is only ever replaced whole,
// published atomically so no reader ever observes a half-applied batch of
// inserts. There is no eviction and no TTL expiry in this version — records
// live until the process ends or are replaced by a later publish, per the
// resolver's Non-goals.
package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jroosing/hydradns/internal/dns"
)

// ErrWriterGone is returned by Bulk.Publish once the
// writer's Listen loop has exited, mirroring the reference design's
// CacheOperatorGone.
var ErrWriterGone = errors.New("cache: writer is gone")

// Key uniquely identifies one stored resource (name, type, and full
// resource value including TTL and class), so inserting the identical
// triple twice dedups to a single entry while a changed TTL is treated as
// a distinct record, matching the reference implementation's derived
// equality on its ResourceData enum.
type Key string

func makeKey(name dns.DomainName, data dns.ResourceData) Key {
	buf := make([]byte, 0, 64)
	buf = append(buf, name.FoldKey()...)
	buf = append(buf, '|')
	buf = append(buf, data.Type().String()...)
	buf = append(buf, '|')
	buf = appendUint16(buf, data.Class().Code())
	buf = append(buf, '|')
	buf = appendUint32(buf, data.TTL())
	buf = append(buf, '|')
	buf = append(buf, data.Data()...)
	return Key(buf)
}

func appendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func nameTypeKey(name dns.DomainName, t dns.Type) string {
	return name.FoldKey() + "#" + t.String()
}

// snapshot is one immutable, fully-formed view of the cache. Readers only
// ever see a *snapshot that was wholesale-replaced by a publish; nothing
// inside a snapshot is ever mutated after it is stored.
type snapshot struct {
	records    map[Key]dns.ResourceData
	byName     map[string][]Key
	byNameType map[string][]Key
}

func emptySnapshot() *snapshot {
	return &snapshot{
		records:    map[Key]dns.ResourceData{},
		byName:     map[string][]Key{},
		byNameType: map[string][]Key{},
	}
}

// store holds the atomically-published snapshot and the inbound command
// channel shared between every reader handle and the single writer.
type store struct {
	current atomic.Pointer[snapshot]
	cmds    chan batch
	done    chan struct{}
}

type record struct {
	name dns.DomainName
	data dns.ResourceData
}

type batch struct {
	records []record
}

// New creates a cache and its writer. The caller must run writer.Listen in
// its own goroutine for inserts to ever become visible.
func New() (*Cache, *Writer) {
	s := &store{
		cmds: make(chan batch, 64),
		done: make(chan struct{}),
	}
	s.current.Store(emptySnapshot())
	return &Cache{store: s}, &Writer{store: s}
}

// Cache is a read handle. It is cheap to copy/share: Clone just shares the
// underlying store, matching one handle per worker goroutine.
type Cache struct {
	store *store
}

// Clone returns an independent handle over the same underlying store.
func (c *Cache) Clone() *Cache { return &Cache{store: c.store} }

// Lookup returns every resource stored for (name, qtype). An empty,
// non-nil-vs-nil distinction is not meaningful here: both a true miss and a
// known-empty entry return a zero-length slice.
func (c *Cache) Lookup(name dns.DomainName, qtype dns.Type) []dns.ResourceData {
	snap := c.store.current.Load()
	keys := snap.byNameType[nameTypeKey(name, qtype)]
	return resolveKeys(snap, keys)
}

// LookupAll returns every resource stored for name regardless of type.
func (c *Cache) LookupAll(name dns.DomainName) []dns.ResourceData {
	snap := c.store.current.Load()
	keys := snap.byName[name.FoldKey()]
	return resolveKeys(snap, keys)
}

func resolveKeys(snap *snapshot, keys []Key) []dns.ResourceData {
	if len(keys) == 0 {
		return nil
	}
	out := make([]dns.ResourceData, 0, len(keys))
	for _, k := range keys {
		if d, ok := snap.records[k]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Bulk returns a pipeline for inserting a batch of records that become
// visible to readers atomically when Publish completes.
func (c *Cache) Bulk() *Bulk {
	return &Bulk{cache: c}
}

// Bulk accumulates inserts locally; nothing is sent to the writer until
// Publish, so a partially built batch is never observable.
type Bulk struct {
	cache   *Cache
	pending []record
}

// Insert queues (name, data) for the next Publish and returns the receiver
// for chaining.
func (b *Bulk) Insert(name dns.DomainName, data dns.ResourceData) *Bulk {
	b.pending = append(b.pending, record{name: name, data: data})
	return b
}

// Publish sends the queued batch to the writer. The writer applies every
// record in the batch and republishes a single new snapshot, so a reader
// that reads after Publish returns sees either the whole batch or none of
// it. Returns ErrWriterGone if the writer's Listen loop has exited.
func (b *Bulk) Publish(ctx context.Context) error {
	select {
	case <-b.cache.store.done:
		return ErrWriterGone
	default:
	}
	select {
	case b.cache.store.cmds <- batch{records: b.pending}:
		return nil
	case <-b.cache.store.done:
		return ErrWriterGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Writer is the single-writer side: it owns the authoritative working maps
// and republishes a fresh snapshot each time a batch is applied.
type Writer struct {
	store *store

	records    map[Key]dns.ResourceData
	byName     map[string][]Key
	byNameType map[string][]Key
}

// Listen consumes batches until ctx is cancelled or the command channel is
// closed, applying each batch and republishing. Run it in its own
// goroutine; once it returns, every pending and future Bulk.Publish fails
// with ErrWriterGone.
func (w *Writer) Listen(ctx context.Context) {
	defer close(w.store.done)

	w.records = map[Key]dns.ResourceData{}
	w.byName = map[string][]Key{}
	w.byNameType = map[string][]Key{}

	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-w.store.cmds:
			if !ok {
				return
			}
			w.apply(b)
			w.store.current.Store(w.snapshotCopy())
		}
	}
}

func (w *Writer) apply(b batch) {
	for _, rec := range b.records {
		key := makeKey(rec.name, rec.data)
		w.records[key] = rec.data

		nameKey := rec.name.FoldKey()
		w.byName[nameKey] = appendUniqueKey(w.byName[nameKey], key)

		ntKey := nameTypeKey(rec.name, rec.data.Type())
		w.byNameType[ntKey] = appendUniqueKey(w.byNameType[ntKey], key)
	}
}

func appendUniqueKey(keys []Key, k Key) []Key {
	for _, existing := range keys {
		if existing == k {
			return keys
		}
	}
	return append(keys, k)
}

// snapshotCopy produces an immutable copy of the writer's current working
// maps to publish. Readers never see the writer's own maps directly.
func (w *Writer) snapshotCopy() *snapshot {
	s := emptySnapshot()
	for k, v := range w.records {
		s.records[k] = v
	}
	for k, v := range w.byName {
		s.byName[k] = append([]Key(nil), v...)
	}
	for k, v := range w.byNameType {
		s.byNameType[k] = append([]Key(nil), v...)
	}
	return s
}
