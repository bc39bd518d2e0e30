package clustering

import "sort"

// DensityStrategy is DBSCAN over cosine similarity. A point is a core point
// when at least MinPoints points (itself included) lie within Similarity of
// it. Points reachable from no core point are noise.
type DensityStrategy struct {
	MinPoints  int
	Similarity float64
}

// Name implements Strategy
func (s *DensityStrategy) Name() string { return StrategyDensity }

// Cluster implements Strategy. Inputs must carry embeddings; visiting order
// follows document ID so results are deterministic.
func (s *DensityStrategy) Cluster(docs []Input) ([]Draft, []Input) {
	docs = sortedInputs(docs)
	n := len(docs)
	if n == 0 {
		return nil, nil
	}

	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		sim[i][i] = 1
		for j := i + 1; j < n; j++ {
			v := CosineSimilarity(docs[i].Embedding, docs[j].Embedding)
			sim[i][j], sim[j][i] = v, v
		}
	}

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if sim[i][j] >= s.Similarity {
				out = append(out, j)
			}
		}
		return out
	}

	const unvisited, noise = -2, -1
	label := make([]int, n)
	for i := range label {
		label[i] = unvisited
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if label[i] != unvisited {
			continue
		}
		nb := neighbors(i)
		if len(nb) < s.MinPoints {
			label[i] = noise
			continue
		}
		label[i] = clusterID
		queue := append([]int(nil), nb...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if label[j] == noise {
				label[j] = clusterID // border point
			}
			if label[j] != unvisited {
				continue
			}
			label[j] = clusterID
			if jn := neighbors(j); len(jn) >= s.MinPoints {
				queue = append(queue, jn...)
			}
		}
		clusterID++
	}

	groups := make([][]int, clusterID)
	var leftover []Input
	for i, l := range label {
		if l < 0 {
			leftover = append(leftover, docs[i])
			continue
		}
		groups[l] = append(groups[l], i)
	}

	drafts := make([]Draft, 0, len(groups))
	for _, idx := range groups {
		members := make([]Input, len(idx))
		vectors := make([][]float32, len(idx))
		cohesion := make(map[string]float64, len(idx))
		for k, i := range idx {
			members[k] = docs[i]
			vectors[k] = docs[i].Embedding
			cohesion[docs[i].DocumentID] = memberCohesion(sim, idx, i)
		}

		name, key, aliases := nameDraft(members)
		ids := make([]string, len(members))
		for k, m := range members {
			ids[k] = m.DocumentID
		}
		sort.Strings(ids)

		drafts = append(drafts, Draft{
			Members:        ids,
			Name:           name,
			NameKey:        key,
			Aliases:        aliases,
			Terms:          sharedTerms(members),
			Cohesion:       meanCohesion(cohesion),
			MemberCohesion: cohesion,
			Centroid:       Centroid(vectors),
			Strategy:       StrategyDensity,
		})
	}
	return drafts, leftover
}

// memberCohesion is the mean similarity of point i to the other members
func memberCohesion(sim [][]float64, idx []int, i int) float64 {
	if len(idx) < 2 {
		return 1
	}
	var sum float64
	for _, j := range idx {
		if j != i {
			sum += sim[i][j]
		}
	}
	return clamp01(sum / float64(len(idx)-1))
}
