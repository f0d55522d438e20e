package models

// LinkKind distinguishes how a suggestion was backed.
type LinkKind string

const (
	// LinkLiteral is backed by an exact textual match of a shared term.
	LinkLiteral LinkKind = "literal"
	// LinkSemantic is backed by embedding similarity; may lack a position.
	LinkSemantic LinkKind = "semantic"
)

// UnlocatedPos is the sentinel for suggestions with no position in the source text.
const UnlocatedPos = -1

// LinkSuggestion is a proposed cross-reference from a source note to a target note.
// Start/End delimit the term occurrence in the source content; both are
// UnlocatedPos when the suggestion could not be anchored to a position, which
// is only valid for semantic suggestions.
type LinkSuggestion struct {
	Term       string   `json:"term"`
	TargetNote string   `json:"target_note"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Confidence float64  `json:"confidence"`
	Context    string   `json:"context,omitempty"`
	Kind       LinkKind `json:"kind"`
}

// Located reports whether the suggestion is anchored to a position in the source.
func (s *LinkSuggestion) Located() bool {
	return s.Start != UnlocatedPos && s.End != UnlocatedPos
}

// BacklinkEntry records an applied semantic relation pointing at a destination note.
type BacklinkEntry struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Term        string `json:"term"`
}

// BacklinkGroup is the presentation grouping of backlink entries by origin note.
type BacklinkGroup struct {
	Origin string   `json:"origin"`
	Terms  []string `json:"terms"`
}
