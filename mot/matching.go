package mot

// MatchingAlgorithm is for algorithm type for matching detections to tracks
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmGreedy resolves pairs in ascending cost order. Default one
	MatchingAlgorithmGreedy MatchingAlgorithm = iota
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment over the same gated pairs
	MatchingAlgorithmHungarian
)

// String returns name of the algorithm as used in configuration files
func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmHungarian:
		return "hungarian"
	default:
		return "greedy"
	}
}

// ParseMatchingAlgorithm converts configuration value into MatchingAlgorithm
func ParseMatchingAlgorithm(s string) (MatchingAlgorithm, bool) {
	switch s {
	case "", "greedy":
		return MatchingAlgorithmGreedy, true
	case "hungarian":
		return MatchingAlgorithmHungarian, true
	default:
		return MatchingAlgorithmGreedy, false
	}
}

// performMatching returns accepted pairs. Each track and each detection appears at most once.
func performMatching(algorithm MatchingAlgorithm, candidates []*candidatePair, numTracks, numDetections int) []*candidatePair {
	if len(candidates) == 0 {
		return nil
	}
	switch algorithm {
	case MatchingAlgorithmHungarian:
		return performHungarianMatching(candidates, numTracks, numDetections)
	default:
		return performGreedyMatching(candidates)
	}
}

// performGreedyMatching takes lowest-cost pair first; pairs with already consumed track or detection are skipped
func performGreedyMatching(candidates []*candidatePair) []*candidatePair {
	priorityQueue := newDistanceHeap(candidates)
	reservedTracks := make(map[int]struct{})
	reservedDetections := make(map[int]struct{})
	matches := make([]*candidatePair, 0)
	for priorityQueue.Len() > 0 {
		pair := priorityQueue.popPair()
		if _, ok := reservedTracks[pair.trackIdx]; ok {
			continue
		}
		if _, ok := reservedDetections[pair.detIdx]; ok {
			continue
		}
		reservedTracks[pair.trackIdx] = struct{}{}
		reservedDetections[pair.detIdx] = struct{}{}
		matches = append(matches, pair)
	}
	return matches
}

// performHungarianMatching maximizes number of matched gated pairs first and minimizes total distance second.
// Non-gated cells (and padding) cost more than all gated distances together, so trading one match
// for any distance saving is never optimal. Assignments landing on them are dropped.
func performHungarianMatching(candidates []*candidatePair, numTracks, numDetections int) []*candidatePair {
	paddedSize := max(numTracks, numDetections)
	penalty := 1.0
	for _, candidate := range candidates {
		penalty += candidate.distance
	}
	cost := make([][]float64, paddedSize)
	feasible := make([][]*candidatePair, paddedSize)
	for i := 0; i < paddedSize; i++ {
		cost[i] = make([]float64, paddedSize)
		feasible[i] = make([]*candidatePair, paddedSize)
		for j := range cost[i] {
			cost[i][j] = penalty
		}
	}
	for _, candidate := range candidates {
		cost[candidate.trackIdx][candidate.detIdx] = candidate.distance
		feasible[candidate.trackIdx][candidate.detIdx] = candidate
	}
	assignment := solveAssignment(cost)
	matches := make([]*candidatePair, 0, min(numTracks, numDetections))
	for trackIdx := 0; trackIdx < numTracks; trackIdx++ {
		detIdx := assignment[trackIdx]
		if detIdx < 0 || detIdx >= numDetections {
			continue
		}
		if pair := feasible[trackIdx][detIdx]; pair != nil {
			matches = append(matches, pair)
		}
	}
	return matches
}
