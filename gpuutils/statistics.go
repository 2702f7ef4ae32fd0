package gpuutils

// Statistics summarizes the descriptor pools owned by an allocator
type Statistics struct {
	PoolCount          int
	ExhaustedPoolCount int
	SetCount           int
	SetCapacity        int
}

func (s *Statistics) Clear() {
	s.PoolCount = 0
	s.ExhaustedPoolCount = 0
	s.SetCount = 0
	s.SetCapacity = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.PoolCount += other.PoolCount
	s.ExhaustedPoolCount += other.ExhaustedPoolCount
	s.SetCount += other.SetCount
	s.SetCapacity += other.SetCapacity
}

// AddPool records a single pool with the given capacity and number of sets issued from it
func (s *Statistics) AddPool(capacity, sets int, exhausted bool) {
	s.PoolCount++
	s.SetCapacity += capacity
	s.SetCount += sets
	if exhausted {
		s.ExhaustedPoolCount++
	}
}
