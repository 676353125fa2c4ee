package logging

import "sync"

// ProgressSampler decides when a count-based progress record is worth
// emitting: once per percentage bucket, and always for the final item. It is
// safe for concurrent use.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when progress crosses
// bucket boundaries (default 10%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// Sample reports the completion percentage of done out of total and whether
// it starts a new bucket. A nil sampler emits every time.
func (s *ProgressSampler) Sample(done, total int) (float64, bool) {
	if total <= 0 {
		return 100, false
	}
	percent := float64(done) * 100 / float64(total)
	if percent > 100 {
		percent = 100
	}
	if s == nil {
		return percent, true
	}
	bucket := int(percent / s.bucketSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket <= s.lastBucket {
		return percent, false
	}
	s.lastBucket = bucket
	return percent, true
}

// Reset clears the sampler state before a new run.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.lastBucket = -1
	s.mu.Unlock()
}
