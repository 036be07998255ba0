package metadata

import (
	"fmt"

	"github.com/roach88/traverql/internal/ir"
)

// LocationInfo holds the per-location facts recorded by the front end.
type LocationInfo struct {
	// TypeName is the declared type of vertices at this location.
	TypeName string

	// OptionalScopesDepth is the number of @optional scopes enclosing
	// this location. Zero means the location is outside any optional.
	OptionalScopesDepth int

	// InFoldScope reports whether the location lies inside a @fold scope.
	InFoldScope bool
}

// Table is the query metadata table: an immutable location -> facts
// lookup plus the revisit-location translation map.
//
// Build a table with NewTable and the Register* methods before lowering
// starts; the lowering passes only ever read it.
type Table struct {
	infos    map[string]LocationInfo
	revisits map[string]ir.Location // revisit key -> origin location
}

// NewTable creates an empty metadata table.
func NewTable() *Table {
	return &Table{
		infos:    make(map[string]LocationInfo),
		revisits: make(map[string]ir.Location),
	}
}

// RegisterLocation records the facts for a location. Registering the
// same location twice overwrites the earlier record.
func (t *Table) RegisterLocation(loc ir.Location, info LocationInfo) {
	t.infos[loc.Key()] = info
}

// RegisterRevisit records that revisit is a semantically equivalent
// re-marking of origin, minted when control returned to origin after an
// optional branch.
func (t *Table) RegisterRevisit(revisit, origin ir.Location) {
	t.revisits[revisit.Key()] = origin
}

// LocationInfo looks up the facts for a location. A missing entry means
// the front end and the block sequence disagree, which callers treat as
// an internal-consistency fault.
func (t *Table) LocationInfo(loc ir.Location) (LocationInfo, error) {
	info, ok := t.infos[loc.Key()]
	if !ok {
		return LocationInfo{}, fmt.Errorf("no metadata registered for location %q", loc.Key())
	}
	return info, nil
}

// RevisitOrigin returns the origin location a revisit translates to, and
// whether loc is a revisit at all.
func (t *Table) RevisitOrigin(loc ir.Location) (ir.Location, bool) {
	origin, ok := t.revisits[loc.Key()]
	return origin, ok
}

// RevisitCount returns the number of registered revisit translations.
func (t *Table) RevisitCount() int {
	return len(t.revisits)
}
