package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/steveyegge/rdscout/internal/changes"
	"github.com/steveyegge/rdscout/internal/types"
)

// statusRank orders existing candidates competing for the same planned one
var statusRank = map[types.CandidateStatus]int{
	types.CandidateDiscovered: 0,
	types.CandidateApproved:   1,
	types.CandidateRejected:   2,
}

type matchPair struct {
	planned  int
	existing *types.ProjectCandidate
	score    float64
}

// matchExisting pairs planned candidates with the existing candidates they
// continue. A pair scores 1.0 when both carry the same project token key,
// else the share of the smaller side's documents the two have in common. A
// name synthesized from a title never identifies a project.
//
// Assignment is one-to-one and greedy by score, so no two planned
// candidates of a run resolve to the same existing ID. Returns planned
// index -> existing candidate.
func (s *Service) matchExisting(ctx context.Context, planned []*types.ProjectCandidate, members [][]string, existing []*types.ProjectCandidate) (map[int]*types.ProjectCandidate, error) {
	out := make(map[int]*types.ProjectCandidate)
	if len(planned) == 0 || len(existing) == 0 {
		return out, nil
	}

	tagged := make(map[string]map[string]bool, len(existing))
	for _, e := range existing {
		tags, err := s.store.ListTagsForProject(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list tags of %s: %w", e.ID, err)
		}
		set := make(map[string]bool, len(tags))
		for _, t := range tags {
			set[t.DocumentID] = true
		}
		tagged[e.ID] = set
	}

	threshold := s.cfg.MatchThreshold
	if threshold <= 0 {
		threshold = changes.DefaultMatchThreshold
	}

	var pairs []matchPair
	for i, p := range planned {
		for _, e := range existing {
			if score := identityScore(p, members[i], e, tagged[e.ID]); score >= threshold {
				pairs = append(pairs, matchPair{planned: i, existing: e, score: score})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if ra, rb := statusRank[a.existing.Status], statusRank[b.existing.Status]; ra != rb {
			return ra < rb
		}
		if !a.existing.CreatedAt.Equal(b.existing.CreatedAt) {
			return a.existing.CreatedAt.Before(b.existing.CreatedAt)
		}
		if a.existing.ID != b.existing.ID {
			return a.existing.ID < b.existing.ID
		}
		return a.planned < b.planned
	})

	claimed := make(map[string]bool, len(existing))
	for _, p := range pairs {
		if _, done := out[p.planned]; done || claimed[p.existing.ID] {
			continue
		}
		out[p.planned] = p.existing
		claimed[p.existing.ID] = true
	}
	return out, nil
}

func identityScore(planned *types.ProjectCandidate, members []string, existing *types.ProjectCandidate, tagged map[string]bool) float64 {
	if planned.Profile.TokenKeyed() && existing.Profile.TokenKeyed() &&
		planned.Profile.NameKey == existing.Profile.NameKey {
		return 1
	}
	return memberOverlap(members, tagged)
}

// memberOverlap is the overlap coefficient of a planned member list and a
// candidate's tagged documents
func memberOverlap(members []string, tagged map[string]bool) float64 {
	if len(members) == 0 || len(tagged) == 0 {
		return 0
	}
	shared := 0
	for _, id := range members {
		if tagged[id] {
			shared++
		}
	}
	return float64(shared) / float64(min(len(members), len(tagged)))
}
