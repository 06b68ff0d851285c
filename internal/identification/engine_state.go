package identification

// State is a step of the disambiguation state machine.
type State string

const (
	StateSearchingCatalog    State = "searching_catalog"
	StateValidatingCandidate State = "validating_candidate"
	StateFallbackSearch      State = "fallback_search"
	StateResolved            State = "resolved"
	StateUnresolved          State = "unresolved"
)

// Terminal reports whether the machine stops in s.
func (s State) Terminal() bool {
	return s == StateResolved || s == StateUnresolved
}

// Source records which path produced a resolved record.
type Source string

const (
	SourceCache    Source = "cache"
	SourceCatalog  Source = "catalog"
	SourceFallback Source = "fallback"
)

// Rejection explains why one catalog candidate failed validation.
type Rejection struct {
	MalID  int
	Title  string
	Reason string
}

const (
	reasonNoCrossRef     = "no cross-reference id"
	reasonLookupFailed   = "lookup failed"
	reasonNoSoundtrack   = "song database has no soundtrack"
	reasonTooFewTracks   = "soundtrack below track requirement"
	reasonCrossRefFailed = "cross-reference backfill failed"
)
