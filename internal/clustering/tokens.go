package clustering

import (
	"sort"
	"strings"

	"github.com/steveyegge/rdscout/internal/entities"
)

// NameTokenStrategy groups documents by exact or near-exact project-name
// token match. Each distinct normalized token yields one draft, so a document
// carrying two tokens is a member of two drafts. Documents with no token are
// left unassigned.
type NameTokenStrategy struct{}

// Name implements Strategy
func (s *NameTokenStrategy) Name() string { return StrategyNameToken }

// Cluster implements Strategy
func (s *NameTokenStrategy) Cluster(docs []Input) ([]Draft, []Input) {
	docs = sortedInputs(docs)

	keysByDoc := make([][]string, len(docs))
	allKeys := make(map[string]bool)
	for i, d := range docs {
		keysByDoc[i] = entities.TokenKeys(d.ProjectTokens)
		for _, k := range keysByDoc[i] {
			allKeys[k] = true
		}
	}

	// A slash token whose last segment is itself a key in the batch is the
	// same project ("[rd/beacon]" and "Project Beacon")
	canonical := func(k string) string {
		if i := strings.LastIndexByte(k, '/'); i >= 0 && i < len(k)-1 {
			if tail := k[i+1:]; allKeys[tail] {
				return tail
			}
		}
		return k
	}

	groups := make(map[string][]int)
	var order []string
	var unassigned []Input
	for i := range docs {
		seen := make(map[string]bool)
		for _, k := range keysByDoc[i] {
			k = canonical(k)
			if seen[k] {
				continue
			}
			seen[k] = true
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], i)
		}
		if len(seen) == 0 {
			unassigned = append(unassigned, docs[i])
		}
	}
	sort.Strings(order)

	drafts := make([]Draft, 0, len(order))
	for _, key := range order {
		idx := groups[key]
		members := make([]Input, len(idx))
		ids := make([]string, len(idx))
		for k, i := range idx {
			members[k] = docs[i]
			ids[k] = docs[i].DocumentID
		}

		cohesion := make(map[string]float64, len(members))
		for k, m := range members {
			cohesion[m.DocumentID] = tokenCohesion(members, k)
		}

		_, _, aliases := nameDraft(members)
		drafts = append(drafts, Draft{
			Members:        ids,
			Name:           displayName(members, key),
			NameKey:        key,
			Aliases:        aliases,
			Terms:          sharedTerms(members),
			Cohesion:       meanCohesion(cohesion),
			MemberCohesion: cohesion,
			Strategy:       StrategyNameToken,
		})
	}
	return drafts, unassigned
}

// tokenCohesion scores a member of a token group without embeddings: a shared
// token is worth 0.5 and the rest comes from entity overlap with the other
// members
func tokenCohesion(members []Input, k int) float64 {
	if len(members) < 2 {
		return 1
	}
	var sum float64
	for j := range members {
		if j != k {
			sum += Jaccard(members[k].Terms, members[j].Terms)
		}
	}
	return clamp01(0.5 + 0.5*sum/float64(len(members)-1))
}
