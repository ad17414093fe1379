package utils

import (
	"dashboard-observer/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of realtime samples stored as
// feature rows. Writes past capacity overwrite the oldest row.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	// Data storage as 2D slice (rows x features)
	data     [][models.RB_NUM_FEATURES]float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 120
	}

	return &RingBuffer{
		data:     make([][models.RB_NUM_FEATURES]float64, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

func toRow(s models.MRealtimeSample) [models.RB_NUM_FEATURES]float64 {
	var row [models.RB_NUM_FEATURES]float64
	row[models.RB_IDX_TIMESTAMP] = float64(s.Timestamp)
	row[models.RB_IDX_ONLINE_USERS] = s.Metrics.OnlineUsers
	row[models.RB_IDX_ACTIVE_ORDERS] = s.Metrics.ActiveOrders
	row[models.RB_IDX_RECENT_SALES] = s.Metrics.RecentSales
	row[models.RB_IDX_CONVERSION_RATE] = s.Metrics.ConversionRate
	if s.Synthetic {
		row[models.RB_IDX_SYNTHETIC] = 1
	}
	return row
}

func fromRow(row [models.RB_NUM_FEATURES]float64) models.MRealtimeSample {
	return models.MRealtimeSample{
		Timestamp: int64(row[models.RB_IDX_TIMESTAMP]),
		Metrics: models.MRealTimeMetrics{
			OnlineUsers:    row[models.RB_IDX_ONLINE_USERS],
			ActiveOrders:   row[models.RB_IDX_ACTIVE_ORDERS],
			RecentSales:    row[models.RB_IDX_RECENT_SALES],
			ConversionRate: row[models.RB_IDX_CONVERSION_RATE],
		},
		Synthetic: row[models.RB_IDX_SYNTHETIC] != 0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a sample, overwriting the oldest one when full.
func (rb *RingBuffer) Append(sample models.MRealtimeSample) {
	rb.data[rb.index] = toRow(sample)
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns up to n newest samples, oldest first.
func (rb *RingBuffer) GetLatest(n int) []models.MRealtimeSample {
	if rb.size == 0 || n <= 0 {
		return []models.MRealtimeSample{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MRealtimeSample, count)

	// latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = fromRow(rb.data[(startIdx+i)%rb.capacity])
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all samples in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MRealtimeSample {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// GetSnapshot returns the raw feature rows, oldest first.
func (rb *RingBuffer) GetSnapshot() [][models.RB_NUM_FEATURES]float64 {
	result := make([][models.RB_NUM_FEATURES]float64, rb.size)

	startIdx := 0
	if rb.size == rb.capacity {
		startIdx = rb.index
	}
	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// Column extracts one feature over the whole buffer, oldest first.
func (rb *RingBuffer) Column(feature int) []float64 {
	if feature < 0 || feature >= models.RB_NUM_FEATURES {
		return []float64{}
	}
	rows := rb.GetSnapshot()
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row[feature]
	}
	return out
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Resize changes the capacity of the buffer.
// If newCapacity < size, oldest data is dropped.
func (rb *RingBuffer) Resize(newCapacity int) {
	if newCapacity <= 0 || newCapacity == rb.capacity {
		return
	}

	rows := rb.GetSnapshot()
	if len(rows) > newCapacity {
		rows = rows[len(rows)-newCapacity:]
	}

	newData := make([][models.RB_NUM_FEATURES]float64, newCapacity)
	copy(newData, rows)

	rb.data = newData
	rb.capacity = newCapacity
	rb.size = len(rows)
	rb.index = rb.size % newCapacity
}
