package assembler

import (
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

// FineClusterer partitions a large pool of fragments into smaller groups before assembly.
// Fragments are identified by their insertion index.
type FineClusterer interface {
	Add(offset uint64, data []byte, links []string)
	Cluster() [][]int
}

// ClustererFactory returns a fresh FineClusterer for one pool.
type ClustererFactory func() FineClusterer

// StreamClusterer groups fragments by the streams DisentangleCluster finds.
type StreamClusterer struct {
	maxGap int64
	frags  []models.Fragment
}

// NewStreamClusterer returns a StreamClusterer using maxGap for gap scoring.
func NewStreamClusterer(maxGap int64) *StreamClusterer {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	return &StreamClusterer{maxGap: maxGap}
}

// Add records a fragment.
func (c *StreamClusterer) Add(offset uint64, data []byte, links []string) {
	c.frags = append(c.frags, models.Fragment{
		Offset:   offset,
		Size:     uint32(len(data)),
		Content:  data,
		Links:    models.NewLinkSet(links...),
		FileType: models.FileTypeUnknown,
	})
}

// Cluster returns one index group per disentangled stream.
func (c *StreamClusterer) Cluster() [][]int {
	index := make(map[uint64][]int, len(c.frags))
	for i, f := range c.frags {
		index[f.Offset] = append(index[f.Offset], i)
	}

	var groups [][]int
	for _, stream := range DisentangleCluster(c.frags, c.maxGap) {
		group := make([]int, 0, len(stream))
		for _, f := range stream {
			ids := index[f.Offset]
			group = append(group, ids[0])
			index[f.Offset] = ids[1:]
		}
		groups = append(groups, group)
	}
	return groups
}

// Affinity clustering defaults.
const (
	DefaultAffinityThreshold = 0.75
	DefaultDistanceDecay     = 10.0
	minDistanceFactor        = 0.1
	linkBonusThreshold       = 0.5
	minWordLength            = 4
)

type affinityFragment struct {
	offset   uint64
	features [256]float64
	words    map[string]struct{}
	links    models.LinkSet
}

// AffinityClusterer links fragments whose content looks alike and that sit close together
// on disk, and returns the connected components of that graph. Content similarity is word
// Jaccard when both fragments are text and byte-histogram cosine otherwise; heavily shared
// links override a weaker content score.
type AffinityClusterer struct {
	Threshold     float64
	DistanceDecay float64 // k in exp(-k * distanceMB / 100)
	frags         []affinityFragment
}

// NewAffinityClusterer returns an AffinityClusterer with the default threshold and decay.
func NewAffinityClusterer() *AffinityClusterer {
	return &AffinityClusterer{Threshold: DefaultAffinityThreshold, DistanceDecay: DefaultDistanceDecay}
}

// Add records a fragment and precomputes its features.
func (c *AffinityClusterer) Add(offset uint64, data []byte, links []string) {
	c.frags = append(c.frags, affinityFragment{
		offset:   offset,
		features: byteProfile(data),
		words:    extractWords(data),
		links:    models.NewLinkSet(links...),
	})
}

type edge struct{ i, j int }

// Cluster computes pairwise affinities and returns connected components, each sorted by
// offset. Components are ordered by their lowest insertion index.
func (c *AffinityClusterer) Cluster() [][]int {
	n := len(c.frags)
	if n == 0 {
		return nil
	}

	rows := make(chan int, n)
	for i := 0; i < n; i++ {
		rows <- i
	}
	close(rows)

	var (
		mu    sync.Mutex
		edges []edge
		wg    sync.WaitGroup
	)
	for w := 0; w < min(runtime.NumCPU(), n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var local []edge
			for i := range rows {
				for j := i + 1; j < n; j++ {
					if c.affinity(i, j) >= c.Threshold {
						local = append(local, edge{i, j})
					}
				}
			}
			mu.Lock()
			edges = append(edges, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	uf := newUnionFind(n)
	for _, e := range edges {
		uf.union(e.i, e.j)
	}

	byRoot := make(map[int]int)
	var groups [][]int
	for i := 0; i < n; i++ {
		root := uf.find(i)
		g, ok := byRoot[root]
		if !ok {
			g = len(groups)
			byRoot[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(a, b int) bool { return c.frags[g[a]].offset < c.frags[g[b]].offset })
	}
	return groups
}

func (c *AffinityClusterer) affinity(i, j int) float64 {
	f1, f2 := &c.frags[i], &c.frags[j]

	var delta uint64
	if f1.offset > f2.offset {
		delta = f1.offset - f2.offset
	} else {
		delta = f2.offset - f1.offset
	}
	deltaMB := float64(delta) / (1024 * 1024)
	distance := math.Exp(-c.DistanceDecay * deltaMB / 100)
	if distance < minDistanceFactor {
		return 0
	}

	var sim float64
	if f1.words != nil && f2.words != nil {
		sim = setJaccard(f1.words, f2.words)
	} else {
		sim = cosine(&f1.features, &f2.features)
	}
	if link := Jaccard(f1.links, f2.links); link > linkBonusThreshold {
		sim = math.Max(link, sim)
	}
	return sim * distance
}

func byteProfile(data []byte) [256]float64 {
	var v [256]float64
	if len(data) == 0 {
		return v
	}
	for _, b := range data {
		v[b]++
	}
	total := float64(len(data))
	for i := range v {
		v[i] /= total
	}
	return v
}

// extractWords returns the lowercased ASCII words longer than three letters, or nil when
// the data is mostly binary or has no such words.
func extractWords(data []byte) map[string]struct{} {
	printable := 0
	for _, b := range data {
		if b >= 32 && b <= 126 {
			printable++
		}
	}
	if printable < len(data)/2 {
		return nil
	}

	words := make(map[string]struct{})
	text := strings.ToValidUTF8(string(data), "�")
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if len(w) >= minWordLength && isASCIIAlpha(w) {
			words[strings.ToLower(w)] = struct{}{}
		}
	}
	if len(words) == 0 {
		return nil
	}
	return words
}

func isASCIIAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func setJaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func cosine(a, b *[256]float64) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
