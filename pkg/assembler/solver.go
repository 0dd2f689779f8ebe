package assembler

import (
	"sort"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

// DefaultMaxGap is the largest gap between consecutive fragments still considered a
// plausible continuation.
const DefaultMaxGap int64 = 1024 * 1024

// Stream solver constants.
const (
	lookahead      = 50
	overlapReject  = -4096
	nearGapLimit   = 32768
	sectorSize     = 512
	scoreAdjacent  = 100.0
	scoreNearBase  = 80.0
	scoreFarBase   = 40.0
	scoreNoFit     = -50.0
	bonusAligned   = 10.0
	bonusSameType  = 20.0
	penaltyMixType = -50.0
)

// Sequence scoring factors.
const (
	factorOverlap    = 0.1
	factorFarSmart   = 0.8
	factorFarStrict  = 0.5
	gapPenaltyWeight = 0.2
)

func sortByOffset(frags []models.Fragment) []models.Fragment {
	sorted := make([]models.Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	return sorted
}

func gapBetween(tail, next models.Fragment) int64 {
	return int64(next.Offset) - int64(tail.End())
}

func gapScore(gap, maxGap int64) float64 {
	switch {
	case gap >= maxGap || gap < 0:
		return scoreNoFit
	case gap == 0:
		return scoreAdjacent
	case gap < nearGapLimit:
		return scoreNearBase - float64(gap)/1024
	default:
		return scoreFarBase - float64(gap)/float64(maxGap)*scoreFarBase
	}
}

// successorScore rates cand as the fragment following tail in the same file.
func successorScore(tail, cand models.Fragment, maxGap int64) float64 {
	score := gapScore(gapBetween(tail, cand), maxGap)
	if cand.Offset%sectorSize == 0 {
		score += bonusAligned
	}
	if tail.FileType.Known() && cand.FileType.Known() {
		if tail.FileType == cand.FileType {
			score += bonusSameType
		} else {
			score += penaltyMixType
		}
	}
	return score
}

// DisentangleCluster splits a pool of possibly interleaved fragments into disjoint streams,
// each ascending by offset. Streams are grown greedily from the earliest pending fragment by
// picking the best-scoring successor among the next few pending fragments. Ties go to the
// earlier pending fragment.
func DisentangleCluster(frags []models.Fragment, maxGap int64) [][]models.Fragment {
	if len(frags) == 0 {
		return nil
	}
	if len(frags) == 1 {
		return [][]models.Fragment{{frags[0]}}
	}

	pending := sortByOffset(frags)
	var streams [][]models.Fragment
	for len(pending) > 0 {
		tail := pending[0]
		pending = pending[1:]
		stream := []models.Fragment{tail}

		for len(pending) > 0 {
			best := -1
			bestScore := 0.0
			for i, cand := range pending[:min(lookahead, len(pending))] {
				if gapBetween(tail, cand) < overlapReject {
					continue
				}
				if s := successorScore(tail, cand, maxGap); s > bestScore {
					best, bestScore = i, s
				}
			}
			if best < 0 {
				break
			}
			tail = pending[best]
			stream = append(stream, tail)
			pending = append(pending[:best], pending[best+1:]...)
		}
		streams = append(streams, stream)
	}
	return streams
}

// ScoreSequence rates the structural plausibility of frags as one file, in (0, 1]. Smart
// mode penalizes gaps beyond maxGap less, since disentangled streams skip over foreign
// fragments.
func ScoreSequence(frags []models.Fragment, maxGap int64, smart bool) float64 {
	if len(frags) == 0 {
		return 0
	}
	sorted := sortByOffset(frags)
	score := 1.0
	for i := 1; i < len(sorted); i++ {
		gap := gapBetween(sorted[i-1], sorted[i])
		switch {
		case gap < 0:
			score *= factorOverlap
		case gap > maxGap:
			if smart {
				score *= factorFarSmart
			} else {
				score *= factorFarStrict
			}
		default:
			score *= 1 - float64(gap)/float64(maxGap)*gapPenaltyWeight
		}
	}
	return score
}
