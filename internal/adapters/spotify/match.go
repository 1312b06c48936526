package spotify

import "github.com/ewilliams-labs/songmatch/internal/fuzzy"

const (
	searchMatchThreshold = 0.8

	minTitleSimilarity   = 0.65
	minArtistSimilarity  = 0.55
	minOverallSimilarity = 0.70
)

// candidateScore rates a search hit. The combined artist+title score is
// tried first; a hit failing it can still pass on a title-weighted score
// over loosely normalized strings, which tolerates remaster and live tags.
func candidateScore(title, artist string, candidate spotifyTrack) (float64, bool) {
	candidateArtist := joinArtistNames(candidate)
	if score := fuzzy.ScorePair(artist, title, candidateArtist, candidate.Name); score >= searchMatchThreshold {
		return score, true
	}
	return trackMatchScore(title, artist, candidate)
}

func trackMatchScore(requestTitle, requestArtist string, candidate spotifyTrack) (float64, bool) {
	normalizedTitle := fuzzy.Loose(requestTitle)
	normalizedArtist := fuzzy.Loose(requestArtist)
	candidateTitle := fuzzy.Loose(candidate.Name)
	candidateArtist := fuzzy.Loose(joinArtistNames(candidate))

	if normalizedTitle == "" || normalizedArtist == "" || candidateTitle == "" || candidateArtist == "" {
		return 0, false
	}

	titleSim := fuzzy.Similarity(normalizedTitle, candidateTitle)
	artistSim := fuzzy.Similarity(normalizedArtist, candidateArtist)
	score := 0.7*titleSim + 0.3*artistSim

	if titleSim < minTitleSimilarity || artistSim < minArtistSimilarity || score < minOverallSimilarity {
		return score, false
	}
	return score, true
}
