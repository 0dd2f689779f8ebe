package assembler

import (
	"regexp"
	"strings"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

// Link host classes used to pool similarity groups.
const (
	DomainYouTube   = "youtube"
	DomainTikTok    = "tiktok"
	DomainInstagram = "instagram"
	DomainFacebook  = "facebook"
	DomainOther     = "other"
)

var bareVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// DomainOf classifies a link identifier by host. Bare 11-character video ids, which is what
// the reconstructor extracts, count as youtube.
func DomainOf(link string) string {
	lower := strings.ToLower(link)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"), bareVideoID.MatchString(link):
		return DomainYouTube
	case strings.Contains(lower, "tiktok.com"):
		return DomainTikTok
	case strings.Contains(lower, "instagram.com"):
		return DomainInstagram
	case strings.Contains(lower, "facebook.com"), strings.Contains(lower, "fb.watch"):
		return DomainFacebook
	}
	return DomainOther
}

// DominantDomain returns the most common domain over all links in group, or "" when the
// group has no links. Ties go to the domain seen first.
func DominantDomain(group []models.Fragment) string {
	counts := make(map[string]int)
	var order []string
	for _, f := range group {
		for _, link := range f.Links.Sorted() {
			d := DomainOf(link)
			if counts[d] == 0 {
				order = append(order, d)
			}
			counts[d]++
		}
	}

	best := ""
	for _, d := range order {
		if best == "" || counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// pool is a batch of fragments assembled together.
type pool struct {
	domain string // empty for a link-less group
	frags  []models.Fragment
}

// poolByDomain merges similarity groups that share a dominant domain. Link-less groups are
// returned as their own pools. Pools keep the order in which their first group appeared.
func poolByDomain(groups [][]models.Fragment) []pool {
	var pools []pool
	index := make(map[string]int)
	for _, g := range groups {
		d := DominantDomain(g)
		if d == "" {
			pools = append(pools, pool{frags: g})
			continue
		}
		if i, ok := index[d]; ok {
			pools[i].frags = append(pools[i].frags, g...)
			continue
		}
		index[d] = len(pools)
		pools = append(pools, pool{domain: d, frags: append([]models.Fragment{}, g...)})
	}
	return pools
}
