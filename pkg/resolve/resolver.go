package resolve

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/ritzau/include-cycles/pkg/includes"
	"github.com/ritzau/include-cycles/pkg/logging"
)

// Mode selects how much of an include target takes part in matching
type Mode int

const (
	// MatchBasename matches on the final path component only
	MatchBasename Mode = iota
	// MatchPath matches the whole relative fragment as a path suffix
	MatchPath
)

// ParseMode maps a configuration value to a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "basename", "":
		return MatchBasename, nil
	case "path":
		return MatchPath, nil
	}
	return MatchBasename, fmt.Errorf("unknown match mode %q", s)
}

// Resolution is the outcome of resolving one include target
type Resolution struct {
	Raw        string   // target as written in the source
	Key        string   // normalized lookup key, shared by equivalent targets
	ID         string   // canonical identity, empty when unresolved
	Candidates []string // every matching file in discovery order
	System     bool     // recognized system header, never a graph node
	Angle      bool     // written with angle brackets
}

// Resolved reports whether the include maps onto a discovered file
func (r Resolution) Resolved() bool {
	return r.ID != ""
}

// Ambiguous reports whether more than one discovered file matched
func (r Resolution) Ambiguous() bool {
	return len(r.Candidates) > 1
}

// Issue returns the warning to record for this resolution, or nil
func (r Resolution) Issue(includer string) error {
	switch {
	case r.System:
		return nil
	case !r.Resolved():
		return &UnresolvedIdentity{Includer: includer, Target: r.Raw, Angle: r.Angle}
	case r.Ambiguous():
		return &AmbiguousIdentity{
			Includer:   includer,
			Target:     r.Raw,
			Chosen:     r.ID,
			Candidates: append([]string(nil), r.Candidates...),
		}
	}
	return nil
}

// AmbiguousIdentity records an include that matched several files.
// The first candidate in discovery order was chosen.
type AmbiguousIdentity struct {
	Includer   string
	Target     string
	Chosen     string
	Candidates []string
}

func (e *AmbiguousIdentity) Error() string {
	return fmt.Sprintf("%s: include %q is ambiguous, chose %s among %s",
		e.Includer, e.Target, e.Chosen, strings.Join(e.Candidates, ", "))
}

// UnresolvedIdentity records an include that matched no discovered file
type UnresolvedIdentity struct {
	Includer string
	Target   string
	Angle    bool
}

func (e *UnresolvedIdentity) Error() string {
	return fmt.Sprintf("%s: include %q does not match any discovered file", e.Includer, e.Target)
}

// Cache memoizes resolutions by lookup key. It is owned by whoever creates
// it and handed to a Resolver, so separate runs never share entries.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Resolution
	hits    int
	misses  int
}

// NewCache creates an empty resolution cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Resolution)}
}

// getOrCompute returns the memoized resolution for key, computing it under
// the lock on first use so each key is resolved exactly once
func (c *Cache) getOrCompute(key string, compute func() Resolution) (Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res, ok := c.entries[key]; ok {
		c.hits++
		return res, false
	}
	c.misses++
	res := compute()
	c.entries[key] = res
	return res, true
}

// Len returns the number of memoized keys
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache hits and misses
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Resolver maps include targets onto canonical file identities
type Resolver struct {
	files  []string         // identities in discovery order
	byBase map[string][]int // base name -> indices into files
	mode   Mode
	system SystemHeaders
	cache  *Cache
}

// Option configures a Resolver
type Option func(*Resolver)

// WithMode sets the match mode
func WithMode(m Mode) Option {
	return func(r *Resolver) { r.mode = m }
}

// WithSystemHeaders replaces the system header set
func WithSystemHeaders(s SystemHeaders) Option {
	return func(r *Resolver) { r.system = s }
}

// New creates a resolver over identities given in discovery order.
// Identities are slash-separated paths relative to the analysis root.
func New(identities []string, cache *Cache, opts ...Option) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	r := &Resolver{
		files:  identities,
		byBase: make(map[string][]int, len(identities)),
		mode:   MatchBasename,
		system: NewSystemHeaders(),
		cache:  cache,
	}
	for i, id := range identities {
		base := path.Base(id)
		r.byBase[base] = append(r.byBase[base], i)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps one include onto a canonical identity. It never fails: no
// match and several matches are reported through the Resolution.
func (r *Resolver) Resolve(inc includes.Include) Resolution {
	angle := inc.Kind == includes.SystemInclude
	if angle && r.system.Contains(inc.Target) {
		return Resolution{Raw: inc.Target, Key: normalize(inc.Target), System: true, Angle: true}
	}

	key := r.lookupKey(inc.Target)
	res, computed := r.cache.getOrCompute(key, func() Resolution {
		return r.scan(key)
	})
	if computed {
		logger := logging.New("resolve")
		switch {
		case res.Ambiguous():
			logger.Warn("ambiguous include target, using first discovered match",
				"target", key, "chosen", res.ID, "candidates", len(res.Candidates))
		case !res.Resolved():
			logger.Debug("unresolved include target", "target", key)
		}
	}

	res.Raw = inc.Target
	res.Angle = angle
	return res
}

// CacheStats returns hits and misses of the resolver's cache
func (r *Resolver) CacheStats() (hits, misses int) {
	return r.cache.Stats()
}

// scan finds every discovered file whose path ends with key on a path
// component boundary, in discovery order
func (r *Resolver) scan(key string) Resolution {
	res := Resolution{Key: key}
	for _, i := range r.byBase[path.Base(key)] {
		id := r.files[i]
		if id == key || strings.HasSuffix(id, "/"+key) {
			res.Candidates = append(res.Candidates, id)
		}
	}
	if len(res.Candidates) > 0 {
		res.ID = res.Candidates[0]
	}
	return res
}

func (r *Resolver) lookupKey(target string) string {
	n := normalize(target)
	if r.mode == MatchBasename {
		return path.Base(n)
	}
	return n
}

// normalize converts separators to '/', cleans the path and drops leading
// "./" and "../" segments, which carry no information for suffix matching
func normalize(target string) string {
	p := path.Clean(strings.ReplaceAll(strings.TrimSpace(target), `\`, "/"))
	for strings.HasPrefix(p, "../") {
		p = p[3:]
	}
	return strings.TrimPrefix(p, "/")
}
