package logging

// ProgressSampler suppresses repetitive "checked N of M" logs during a
// candidate scan, emitting only when the percentage crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastTotal  int
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 25%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 25
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress at checked/total should be logged. The
// start and end of a scan always log; a change in total starts a new scan.
func (s *ProgressSampler) ShouldLog(checked, total int) bool {
	if s == nil {
		return true
	}
	if total != s.lastTotal {
		s.lastTotal = total
		s.lastBucket = -1
	}
	if total <= 0 {
		return false
	}
	if checked >= total {
		checked = total
	}
	percent := float64(checked) * 100 / float64(total)
	bucket := int(percent / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state (e.g. when a new attempt starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastTotal = 0
	s.lastBucket = -1
}
