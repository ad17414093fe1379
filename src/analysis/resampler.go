package analysis

import (
	"sort"
)

// TimeSeriesResampler groups timestamped samples into fixed windows.
type TimeSeriesResampler struct{}

// Window is one group of sample indices with its [StartTime, EndTime) bounds.
type Window struct {
	Indices   []int
	StartTime int64
	EndTime   int64
}

// -----------------------------------------------------------------------------

// ResampleIndices returns the non-empty windows covering timestamps, which must
// be sorted ascending. Windows are aligned to multiples of windowSeconds.
func (r *TimeSeriesResampler) ResampleIndices(timestamps []int64, windowSeconds int64) []Window {
	if len(timestamps) == 0 || windowSeconds <= 0 {
		return []Window{}
	}

	minTs := timestamps[0]
	maxTs := timestamps[len(timestamps)-1]
	first, _ := CalculateWindowBoundaries(minTs, windowSeconds)

	var results []Window
	for start := first; start <= maxTs; start += windowSeconds {
		end := start + windowSeconds

		startIdx := SearchSorted(timestamps, start, "left")
		endIdx := SearchSorted(timestamps, end, "left")
		if startIdx >= endIdx {
			continue
		}

		indices := make([]int, endIdx-startIdx)
		for idx := startIdx; idx < endIdx; idx++ {
			indices[idx-startIdx] = idx
		}
		results = append(results, Window{Indices: indices, StartTime: start, EndTime: end})
	}

	return results
}

// -----------------------------------------------------------------------------

// SearchSorted mirrors a binary "searchsorted" with left or right side.
func SearchSorted(arr []int64, value int64, side string) int {
	if side == "left" {
		return sort.Search(len(arr), func(i int) bool {
			return arr[i] >= value
		})
	}
	return sort.Search(len(arr), func(i int) bool {
		return arr[i] > value
	})
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the aligned window containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - (ts % window)
	return start, start + window
}
