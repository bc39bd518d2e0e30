package clustering

import (
	"math"
	"strings"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the vectors differ in length or either is zero
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Centroid returns the element-wise mean of equal-length vectors. Vectors
// whose length differs from the first are ignored.
func Centroid(vectors [][]float32) []float32 {
	var dim int
	for _, v := range vectors {
		if len(v) > 0 {
			dim = len(v)
			break
		}
	}
	if dim == 0 {
		return nil
	}

	sum := make([]float64, dim)
	n := 0
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		n++
	}
	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(n))
	}
	return out
}

// Jaccard returns |a∩b| / |a∪b| over case-insensitive terms
func Jaccard(a, b []string) float64 {
	setA := termSet(a)
	setB := termSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for k := range setA {
		if setB[k] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// OverlapCoefficient returns |a∩b| / min(|a|,|b|) over case-insensitive terms
func OverlapCoefficient(a, b []string) float64 {
	setA := termSet(a)
	setB := termSet(b)
	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	if smaller == 0 {
		return 0
	}
	inter := 0
	for k := range setA {
		if setB[k] {
			inter++
		}
	}
	return float64(inter) / float64(smaller)
}

func termSet(terms []string) map[string]bool {
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = true
		}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
