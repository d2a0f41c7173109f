package models

// CacheStats reports cache contents and performance counters.
type CacheStats struct {
	Occupations int64 `json:"occupations"`
	Details     int64 `json:"details"`
	Queries     int64 `json:"queries"`
	IndexHits   int64 `json:"index_hits"`
	IndexMisses int64 `json:"index_misses"`
	QueryHits   int64 `json:"query_hits"`
	QueryMisses int64 `json:"query_misses"`
	Evicted     int64 `json:"evicted"`
}

// QueryHitRate returns the fraction of query lookups served from cache.
func (s CacheStats) QueryHitRate() float64 {
	total := s.QueryHits + s.QueryMisses
	if total == 0 {
		return 0
	}
	return float64(s.QueryHits) / float64(total)
}
