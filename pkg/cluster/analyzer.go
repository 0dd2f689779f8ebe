// Package cluster groups raw scanner hits into dense regions of the image.
package cluster

import (
	"math"
	"sort"

	"github.com/I0633852860/ultimate-recovery-temp/models"
	"github.com/I0633852860/ultimate-recovery-temp/pkg/reconstructor"
)

const (
	// HitSpan is the number of bytes a single hit is assumed to cover past its offset.
	HitSpan = 256
	// minSpanKB keeps sparse singletons from getting inflated densities.
	minSpanKB = 4.0
)

// Analyzer turns scanner hits into ranked clusters.
type Analyzer struct {
	Window     uint64  // maximum offset distance between consecutive hits of one group
	MinDensity float64 // clusters below this many links per KB are dropped
}

// NewAnalyzer returns an Analyzer with the given grouping window and density floor.
func NewAnalyzer(window uint64, minDensity float64) *Analyzer {
	return &Analyzer{Window: window, MinDensity: minDensity}
}

// Analyze runs FindClusters, MergeOverlapping and Rank in sequence.
func (a *Analyzer) Analyze(hits []models.RawHit) []models.Cluster {
	return Rank(MergeOverlapping(a.FindClusters(hits)))
}

// FindClusters groups hits whose consecutive offsets are within Window and keeps the
// groups dense enough to be worth reading. Output is in ascending offset order.
func (a *Analyzer) FindClusters(hits []models.RawHit) []models.Cluster {
	if len(hits) == 0 {
		return nil
	}

	sorted := make([]models.RawHit, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var clusters []models.Cluster
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i].Offset-sorted[i-1].Offset <= a.Window {
			continue
		}
		if c, ok := a.seed(sorted[start:i]); ok {
			clusters = append(clusters, c)
		}
		start = i
	}
	return clusters
}

func (a *Analyzer) seed(group []models.RawHit) (models.Cluster, bool) {
	start := group[0].Offset
	end := group[len(group)-1].Offset + HitSpan

	links := models.NewLinkSet()
	for _, h := range group {
		if h.MatchedID == "" && h.URL == "" {
			for _, id := range reconstructor.ExtractLinksFromBytes(h.Data) {
				links[id] = struct{}{}
			}
			continue
		}
		if h.MatchedID != "" {
			links[h.MatchedID] = struct{}{}
		}
		if h.URL != "" {
			links[h.URL] = struct{}{}
		}
	}

	spanKB := math.Max(float64(end-start)/1024, minSpanKB)
	density := float64(len(links)) / spanKB
	if density < a.MinDensity {
		return models.Cluster{}, false
	}

	return models.Cluster{
		StartOffset: start,
		EndOffset:   end,
		Density:     density,
		LinkCount:   uint32(len(links)),
		Links:       links.Sorted(),
	}, true
}

// MergeOverlapping coalesces clusters whose ranges overlap or touch. The merged density is
// the mean of the two inputs.
func MergeOverlapping(clusters []models.Cluster) []models.Cluster {
	if len(clusters) == 0 {
		return nil
	}

	sorted := make([]models.Cluster, len(clusters))
	copy(sorted, clusters)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartOffset < sorted[j].StartOffset })

	merged := []models.Cluster{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if next.StartOffset > cur.EndOffset {
			merged = append(merged, next)
			continue
		}
		cur.EndOffset = max(cur.EndOffset, next.EndOffset)
		cur.Links = models.NewLinkSet(append(append([]string{}, cur.Links...), next.Links...)...).Sorted()
		cur.LinkCount += next.LinkCount
		cur.Density = (cur.Density + next.Density) / 2
	}
	return merged
}

// Score is the ranking key of a cluster: density × link count × ln(size/1024 + 1).
func Score(c models.Cluster) float64 {
	return c.Density * float64(c.LinkCount) * math.Log(float64(c.Size())/1024+1)
}

// Rank orders clusters by descending Score. Ties keep their input order.
func Rank(clusters []models.Cluster) []models.Cluster {
	ranked := make([]models.Cluster, len(clusters))
	copy(ranked, clusters)
	sort.SliceStable(ranked, func(i, j int) bool { return Score(ranked[i]) > Score(ranked[j]) })
	return ranked
}
