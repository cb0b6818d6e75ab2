package keypoints

// Match is a candidate from a Matcher: the index of a stored descriptor and its distance to the
// query.
type Match struct {
	Index    int     `json:"index"`
	Distance float32 `json:"distance"`
}

// Matcher indexes descriptors and answers nearest-neighbour queries against them. Results are
// ordered by increasing distance.
type Matcher[D Descriptor] interface {
	// Add stores descriptors. Indices continue from the descriptors already stored.
	Add(descriptors []D)
	Clear()
	Len() int
	KNN(query D, k int) []Match
	Radius(query D, maxDistance float32) []Match
}

// FindMatch returns the single nearest stored descriptor, or false when m is empty.
func FindMatch[D Descriptor](m Matcher[D], query D) (Match, bool) {
	matches := m.KNN(query, 1)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
