package service

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cyberlab/helpdesk/internal/domain"
	"go.uber.org/zap"
)

// roleVisibility lists which visibility tags each role may see. A more
// privileged role's allowance is always a superset of a less privileged
// role's, which is what makes role filtering monotone.
var roleVisibility = map[domain.UserRole]map[domain.VisibilityTag]bool{
	domain.RoleTrainee:    {},
	domain.RoleInstructor: {},
	domain.RoleOperator: {
		domain.VisibilityOSCommand: true,
	},
	domain.RoleSupportEngineer: {
		domain.VisibilityOSCommand:  true,
		domain.VisibilityPrivileged: true,
	},
	domain.RoleAdmin: {
		domain.VisibilityOSCommand:  true,
		domain.VisibilityPrivileged: true,
	},
}

// RankingResolver applies role filtering and version conflict resolution
// to retrieval candidates, producing the authoritative fragment set.
type RankingResolver struct {
	logger *zap.Logger
}

func NewRankingResolver(logger *zap.Logger) *RankingResolver {
	return &RankingResolver{logger: logger}
}

// Resolve drops out-of-policy fragments for the role, then keeps only the
// authoritative document per logical topic, truncating to topK. Fragments
// from superseded documents are dropped and recorded as notes for
// citation.
func (r *RankingResolver) Resolve(candidates []domain.FragmentWithScore, role domain.UserRole, topK int) domain.ResolvedFragments {
	visible := r.filterByRole(candidates, role)
	resolved, notes := r.resolveConflicts(visible)

	if topK > 0 && len(resolved) > topK {
		resolved = resolved[:topK]
	}

	return domain.ResolvedFragments{Fragments: resolved, Notes: notes}
}

// filterByRole is a pure set-membership filter: a fragment is dropped when
// any of its visibility tags is outside the role's allowance. Content is
// never substituted or redacted here.
func (r *RankingResolver) filterByRole(candidates []domain.FragmentWithScore, role domain.UserRole) []domain.FragmentWithScore {
	allowed := roleVisibility[role]

	var out []domain.FragmentWithScore
	for _, c := range candidates {
		hidden := false
		for _, tag := range c.VisibilityTags {
			if !allowed[tag] {
				hidden = true
				break
			}
		}
		if hidden {
			r.logger.Debug("fragment filtered by role",
				zap.String("fragment_id", c.ID),
				zap.String("user_role", string(role)))
			continue
		}
		out = append(out, c)
	}
	return out
}

// resolveConflicts groups candidate documents by logical topic and keeps
// only the authoritative one per group. Topic key is the normalized
// document title; see normalizeTitle.
func (r *RankingResolver) resolveConflicts(candidates []domain.FragmentWithScore) ([]domain.FragmentWithScore, []domain.SupersessionNote) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := make(map[string]domain.KnowledgeDocument)
	for _, c := range candidates {
		if _, ok := docs[c.DocumentID]; !ok {
			docs[c.DocumentID] = c.Document
		}
	}

	topics := make(map[string][]string)
	for id, d := range docs {
		key := normalizeTitle(d.Title)
		topics[key] = append(topics[key], id)
	}

	excluded := make(map[string]string) // loser id -> winner id
	for _, ids := range topics {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool {
			return moreAuthoritative(docs[ids[i]], docs[ids[j]])
		})
		winner := ids[0]
		for _, loser := range ids[1:] {
			excluded[loser] = winner
			r.logger.Info("document superseded",
				zap.String("winner", winner),
				zap.String("loser", loser),
				zap.String("winner_version", docs[winner].Version))
		}
	}

	var kept []domain.FragmentWithScore
	for _, c := range candidates {
		if _, dropped := excluded[c.DocumentID]; !dropped {
			kept = append(kept, c)
		}
	}

	// Notes ordered by loser id so the output is stable across calls.
	losers := make([]string, 0, len(excluded))
	for loser := range excluded {
		losers = append(losers, loser)
	}
	sort.Strings(losers)
	var notes []domain.SupersessionNote
	for _, loser := range losers {
		notes = append(notes, domain.SupersessionNote{WinnerID: excluded[loser], LoserID: loser})
	}

	return kept, notes
}

// moreAuthoritative implements the strict total order over conflicting
// documents: higher semantic version, then newer last_updated, then the
// non-deprecated one, then the lexicographically smaller identifier.
func moreAuthoritative(a, b domain.KnowledgeDocument) bool {
	av, aerr := semver.NewVersion(a.Version)
	bv, berr := semver.NewVersion(b.Version)
	switch {
	case aerr == nil && berr == nil:
		if cmp := av.Compare(bv); cmp != 0 {
			return cmp > 0
		}
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}

	if !a.LastUpdated.Equal(b.LastUpdated) {
		return a.LastUpdated.After(b.LastUpdated)
	}

	if a.Deprecated != b.Deprecated {
		return !a.Deprecated
	}

	return a.ID < b.ID
}

var (
	versionSuffixRe = regexp.MustCompile(`(?i)\s+v?\d+\.\d+(\.\d+)?`)
	yearRe          = regexp.MustCompile(`\s+20\d{2}`)
	parenRe         = regexp.MustCompile(`\([^)]*\)`)
	markerRe        = regexp.MustCompile(`(?i)\s+(deprecated|current|old|new)`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

// normalizeTitle strips version suffixes, years, parentheticals, and
// freshness markers so "Auth Policy 2024 (current)" and "Auth Policy 2023"
// land on the same logical-topic key.
func normalizeTitle(title string) string {
	title = versionSuffixRe.ReplaceAllString(title, "")
	title = yearRe.ReplaceAllString(title, "")
	title = parenRe.ReplaceAllString(title, "")
	title = markerRe.ReplaceAllString(title, "")
	title = spaceRe.ReplaceAllString(title, " ")
	return strings.ToLower(strings.TrimSpace(title))
}
