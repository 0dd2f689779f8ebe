package assembler

import "github.com/I0633852860/ultimate-recovery-temp/models"

// candidateMatchConfidence is the heuristic confidence credited to each candidate that
// overlaps at least one fragment.
const candidateMatchConfidence = 0.8

// AnalyzeCandidates joins filesystem-metadata candidates against fragments by byte-range
// overlap.
func AnalyzeCandidates(candidates []models.MetadataCandidate, frags []models.Fragment) models.CandidateAnalysis {
	var analysis models.CandidateAnalysis
	total := 0.0
	for _, c := range candidates {
		var linked []models.Fragment
		for _, f := range frags {
			if overlaps(c, f) {
				linked = append(linked, f)
			}
		}
		if len(linked) == 0 {
			continue
		}
		analysis.FragmentedFiles = append(analysis.FragmentedFiles, models.CandidateMatch{
			Candidate:       c,
			LinkedFragments: linked,
		})
		analysis.PotentialMatches++
		total += candidateMatchConfidence
	}
	if analysis.PotentialMatches > 0 {
		analysis.ConfidenceScore = total / float64(analysis.PotentialMatches) * 100
	}
	return analysis
}

func overlaps(c models.MetadataCandidate, f models.Fragment) bool {
	return max(c.Offset, f.Offset) < min(c.End(), f.End())
}
