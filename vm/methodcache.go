package vm

// MethodCacheSize is the number of entries in the global method lookup
// cache, per spec.md §4.6 ("a 1024-entry method cache"). Direct-mapped,
// keyed by (class, selector).
const MethodCacheSize = 1024

type methodCacheEntry struct {
	class    Oop
	selector Oop
	method   *CompiledMethod
	// definingClass is the class in whose dictionary the method was
	// actually found, needed to resolve super sends correctly and to
	// report the method's home class to context primitives.
	definingClass Oop
	valid         bool
}

// MethodCache is the VM-wide direct-mapped cache that sendSelector consults
// before walking the superclass chain, per spec.md §4.6. Unlike the
// teacher's per-call-site polymorphic inline cache (vm/inline_cache.go in
// chazu-maggie), this is the blue book's single flat table shared by every
// call site in the image; it trades the teacher's per-site megamorphic
// fallback for the original's "flush the whole table on any method change"
// invalidation rule.
type MethodCache struct {
	entries [MethodCacheSize]methodCacheEntry
	hits    uint64
	misses  uint64
}

// NewMethodCache returns an empty cache.
func NewMethodCache() *MethodCache {
	return &MethodCache{}
}

func methodCacheHash(class, selector Oop) int {
	h := uint32(class)*31 + uint32(selector)
	return int(h % MethodCacheSize)
}

// Lookup returns the cached method and its defining class for (class,
// selector), or (nil, 0, false) on a cache miss.
func (c *MethodCache) Lookup(class, selector Oop) (method *CompiledMethod, definingClass Oop, ok bool) {
	i := methodCacheHash(class, selector)
	e := &c.entries[i]
	if e.valid && e.class == class && e.selector == selector {
		c.hits++
		return e.method, e.definingClass, true
	}
	c.misses++
	return nil, 0, false
}

// Insert records a successful lookup result, overwriting whatever
// previously lived at that slot (a real collision, not a class change —
// those go through Flush).
func (c *MethodCache) Insert(class, selector Oop, method *CompiledMethod, definingClass Oop) {
	i := methodCacheHash(class, selector)
	c.entries[i] = methodCacheEntry{
		class:         class,
		selector:      selector,
		method:        method,
		definingClass: definingClass,
		valid:         true,
	}
}

// Flush invalidates the entire cache, since the cache has no way to
// invalidate selectively. LoadSnapshot calls it after replacing the heap;
// installing a method through bootstrap's addMethod does not flush.
func (c *MethodCache) Flush() {
	for i := range c.entries {
		c.entries[i] = methodCacheEntry{}
	}
}

// HitRate reports the cache's lifetime hit ratio, for the debugger/otindex
// instrumentation only — never consulted by the interpreter itself.
func (c *MethodCache) HitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}
