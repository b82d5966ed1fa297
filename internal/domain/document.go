package domain

import (
	"time"
)

// VisibilityTag marks content within a fragment that restricts which roles
// may see it. Tags are derived from content markers at ingestion time.
type VisibilityTag string

const (
	VisibilityOSCommand  VisibilityTag = "contains-os-command"
	VisibilityPrivileged VisibilityTag = "privileged-only"
)

// KnowledgeDocument is the metadata of one versioned KB document.
// Documents are owned by the ingestion collaborator and read-only here.
type KnowledgeDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	Tags        []string  `json:"tags"`
	Deprecated  bool      `json:"deprecated"`
}

// HasTag reports whether the document carries the given tag.
func (d *KnowledgeDocument) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// KnowledgeFragment is one chunk of a document, the unit of retrieval.
// Fragments are immutable once ingested and all embeddings in the store
// share the same fixed dimension.
type KnowledgeFragment struct {
	ID             string          `json:"id"`
	DocumentID     string          `json:"document_id"`
	Text           string          `json:"text"`
	HeadingPath    []string        `json:"heading_path"`
	Embedding      []float32       `json:"-"`
	Position       int             `json:"position"`
	VisibilityTags []VisibilityTag `json:"visibility_tags,omitempty"`
}

// HasVisibilityTag reports whether the fragment carries the given tag.
func (f *KnowledgeFragment) HasVisibilityTag(tag VisibilityTag) bool {
	for _, t := range f.VisibilityTags {
		if t == tag {
			return true
		}
	}
	return false
}

// FragmentWithScore pairs a fragment with its similarity score and the
// owning document's metadata, as returned by the vector search.
type FragmentWithScore struct {
	KnowledgeFragment
	Document KnowledgeDocument `json:"document"`
	Score    float32           `json:"score"`
}

// SupersessionNote records that one document's fragments were dropped in
// favor of a more authoritative conflicting document.
type SupersessionNote struct {
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

func (n SupersessionNote) String() string {
	return "document " + n.WinnerID + " supersedes document " + n.LoserID
}

// ResolvedFragments is the authoritative, role-filtered fragment set
// produced by ranking, plus the supersession notes for citation.
type ResolvedFragments struct {
	Fragments []FragmentWithScore `json:"fragments"`
	Notes     []SupersessionNote  `json:"notes,omitempty"`
}

// Coverage reports whether at least one in-policy fragment survived.
func (r *ResolvedFragments) Coverage() bool {
	return len(r.Fragments) > 0
}
