package core

import (
	"math"
	"sort"

	"dashboard-observer/src/models"
)

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)))
}

// -----------------------------------------------------------------------------

// CalculateStatistics returns min, max, average, sum and median. NaN values
// are skipped; an empty series gives all zeros.
func CalculateStatistics(data []float64) models.MStatistics {
	values := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return models.MStatistics{}
	}

	sort.Float64s(values)

	n := len(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	_, std := CalculateMeanStd(values)

	median := values[n/2]
	if n%2 == 0 {
		median = (values[n/2-1] + values[n/2]) / 2
	}

	return models.MStatistics{
		Min:     values[0],
		Max:     values[n-1],
		Average: sum / float64(n),
		Sum:     sum,
		Median:  median,
		StdDev:  std,
		Count:   n,
	}
}

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates fractional change.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// SafeRatio divides, returning 0 for a zero denominator.
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
