// internal/engine/registry.go
package engine

import "github.com/valpere/VidSieve/pkg/types"

// Tag is the decision recorded for one container instance
type Tag struct {
	Filtered bool
	Reason   types.Reason
	// Generation is the settings generation a pass verdict was reached under
	Generation uint64
}

// Registry holds decision tags keyed by container key. It lives beside the
// page rather than in it, so no rendering state carries engine decisions.
// Not safe for concurrent use; the engine serialises access.
type Registry struct {
	tags map[string]Tag
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tags: make(map[string]Tag)}
}

// Get returns the tag for key
func (r *Registry) Get(key string) (Tag, bool) {
	tag, ok := r.tags[key]
	return tag, ok
}

// Decided reports whether key needs no evaluation under generation.
// Filtered tags are final; pass tags expire when settings change.
func (r *Registry) Decided(key string, generation uint64) bool {
	tag, ok := r.tags[key]
	if !ok {
		return false
	}
	return tag.Filtered || tag.Generation == generation
}

// MarkFiltered tags key as filtered for good
func (r *Registry) MarkFiltered(key string, reason types.Reason) {
	r.tags[key] = Tag{Filtered: true, Reason: reason}
}

// MarkPassed tags key as passed under generation. A filtered tag is never
// downgraded.
func (r *Registry) MarkPassed(key string, generation uint64) {
	if tag, ok := r.tags[key]; ok && tag.Filtered {
		return
	}
	r.tags[key] = Tag{Generation: generation}
}

// Retain drops tags for keys that are no longer on the page and returns how
// many were dropped
func (r *Registry) Retain(live []string) int {
	keep := make(map[string]bool, len(live))
	for _, key := range live {
		keep[key] = true
	}
	dropped := 0
	for key := range r.tags {
		if !keep[key] {
			delete(r.tags, key)
			dropped++
		}
	}
	return dropped
}

// Filtered lists keys tagged filtered
func (r *Registry) Filtered() []string {
	var keys []string
	for key, tag := range r.tags {
		if tag.Filtered {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the number of tagged containers
func (r *Registry) Len() int {
	return len(r.tags)
}

// Reset forgets every tag
func (r *Registry) Reset() {
	r.tags = make(map[string]Tag)
}
