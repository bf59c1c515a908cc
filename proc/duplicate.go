package proc

// IsDuplicate reports whether any queue already holds a track with the same
// canonical URL. Tracks without a canonical URL never count as duplicates.
func IsDuplicate(t *Track, queues ...[]*Track) bool {
	if t == nil || t.URL == "" {
		return false
	}
	for _, q := range queues {
		for _, existing := range q {
			if existing != nil && existing.URL == t.URL {
				return true
			}
		}
	}
	return false
}
