package sim

import "fmt"

// RoundRange represents an inclusive range of round numbers.
type RoundRange struct {
	From uint64
	To   uint64
}

// SplitRounds splits a round range into batches of size batchSize.
func SplitRounds(from, to, batchSize uint64) ([]RoundRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("last round must be >= first round")
	}

	ranges := make([]RoundRange, 0, (to-from)/batchSize+1)
	start := from
	for start <= to {
		end := to
		if to-start+1 > batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, RoundRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
