package assembler

import "github.com/I0633852860/ultimate-recovery-temp/models"

// DefaultSimilarityThreshold is the Jaccard score a fragment needs against a group seed to
// join the group.
const DefaultSimilarityThreshold = 0.3

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b models.LinkSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for id := range small {
		if large.Has(id) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// GroupBySimilarity partitions frags with one greedy pass: the first ungrouped fragment
// seeds a group and every later ungrouped fragment with Jaccard(seed, f) >= threshold joins
// it. Groups hold fragments in input order.
func GroupBySimilarity(frags []models.Fragment, threshold float64) [][]models.Fragment {
	used := make([]bool, len(frags))
	var groups [][]models.Fragment
	for i := range frags {
		if used[i] {
			continue
		}
		used[i] = true
		group := []models.Fragment{frags[i]}
		for j := i + 1; j < len(frags); j++ {
			if used[j] {
				continue
			}
			if Jaccard(frags[i].Links, frags[j].Links) >= threshold {
				used[j] = true
				group = append(group, frags[j])
			}
		}
		groups = append(groups, group)
	}
	return groups
}
