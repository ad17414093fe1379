package analysis

import (
	"math"

	"dashboard-observer/src/models"
)

// AggregationType selects how chunks are combined when downsampling.
type AggregationType string

const (
	AggregateSum     AggregationType = "sum"
	AggregateAverage AggregationType = "average"
)

// -----------------------------------------------------------------------------

// OptimizeDataset reduces a trend to at most maxPoints by combining fixed-size
// chunks of ceil(len/maxPoints) points. Chunks keep producer order and are
// labelled "first - last" when they span more than one date.
func OptimizeDataset(points []models.MTrendPoint, maxPoints int, agg AggregationType) []models.MTrendPoint {
	if len(points) == 0 {
		return []models.MTrendPoint{}
	}
	if maxPoints <= 0 || len(points) <= maxPoints {
		return append([]models.MTrendPoint{}, points...)
	}

	factor := int(math.Ceil(float64(len(points)) / float64(maxPoints)))
	result := make([]models.MTrendPoint, 0, maxPoints)

	for i := 0; i < len(points); i += factor {
		end := i + factor
		if end > len(points) {
			end = len(points)
		}
		chunk := points[i:end]

		sum := 0.0
		for _, p := range chunk {
			sum += p.Value
		}
		value := sum
		if agg == AggregateAverage {
			value = sum / float64(len(chunk))
		}

		label := chunk[0].Date
		if len(chunk) > 1 {
			label = chunk[0].Date + " - " + chunk[len(chunk)-1].Date
		}
		result = append(result, models.MTrendPoint{Date: label, Value: value})
	}

	return result
}

// -----------------------------------------------------------------------------

func trendValues(points []models.MTrendPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
