package search

// ClassifiedResults buckets resolved hits by what they look like, not by the
// candidate list they came from.
type ClassifiedResults struct {
	Movies []ResolvedHit `json:"movies"`
	People []ResolvedHit `json:"people"`
}

// IsPerson applies the gender rule: TMDB only sets a non-zero gender on
// people, so a hit carrying one is a person whichever lookup returned it.
func (h ResolvedHit) IsPerson() bool {
	return h.Hit.Gender != nil && *h.Hit.Gender != 0
}

// Classify keeps input order within each bucket.
func Classify(hits []ResolvedHit) ClassifiedResults {
	out := ClassifiedResults{Movies: []ResolvedHit{}, People: []ResolvedHit{}}
	for _, hit := range hits {
		if hit.IsPerson() {
			out.People = append(out.People, hit)
		} else {
			out.Movies = append(out.Movies, hit)
		}
	}
	return out
}
