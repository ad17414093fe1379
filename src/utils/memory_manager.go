package utils

import (
	"runtime"
	"runtime/debug"
	"sync"

	"dashboard-observer/src/logger"
	"dashboard-observer/src/models"
)

// -----------------------------------------------------------------------------
// MemoryManager keeps named in-memory sample histories (one ring buffer per
// stream) and shrinks them when the heap grows past the configured limit.
// -----------------------------------------------------------------------------

type MemoryManager struct {
	Streams       map[string]*RingBuffer
	MaxMemoryMB   int
	MaxDataPoints int
	Logger        *logger.Logger
	mu            sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMemoryManager(maxMemoryMB, maxDataPoints int) *MemoryManager {
	return &MemoryManager{
		Streams:       make(map[string]*RingBuffer),
		MaxMemoryMB:   maxMemoryMB,
		MaxDataPoints: maxDataPoints,
		Logger:        logger.NewLogger(nil, "MemoryManager"),
	}
}

// -----------------------------------------------------------------------------

// AddSample appends a sample to the stream, creating it on first use.
func (mm *MemoryManager) AddSample(stream string, sample models.MRealtimeSample) {
	mm.mu.Lock()
	buffer, ok := mm.Streams[stream]
	if !ok {
		buffer = NewRingBuffer(mm.MaxDataPoints)
		mm.Streams[stream] = buffer
	}
	buffer.Append(sample)
	check := mm.MaxMemoryMB > 0 && buffer.Size()%100 == 0
	mm.mu.Unlock()

	if check {
		mm.CheckMemoryLimits()
	}
}

// -----------------------------------------------------------------------------

// Latest returns up to n newest samples of a stream, oldest first.
// n <= 0 returns the whole stream.
func (mm *MemoryManager) Latest(stream string, n int) []models.MRealtimeSample {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	buffer, ok := mm.Streams[stream]
	if !ok {
		return []models.MRealtimeSample{}
	}
	if n <= 0 {
		return buffer.GetAll()
	}
	return buffer.GetLatest(n)
}

// -----------------------------------------------------------------------------

// Column returns one feature of a stream, oldest first.
func (mm *MemoryManager) Column(stream string, feature int) []float64 {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	buffer, ok := mm.Streams[stream]
	if !ok {
		return []float64{}
	}
	return buffer.Column(feature)
}

// -----------------------------------------------------------------------------

// CheckMemoryLimits halves stream capacities (down to 50) when over budget.
func (mm *MemoryManager) CheckMemoryLimits() {
	currentMemory := mm.GetProcessMemoryMB()
	if currentMemory <= float64(mm.MaxMemoryMB) {
		return
	}

	mm.Logger.Info("Memory usage %.1fMB exceeds limit %dMB. Cleaning up.", currentMemory, mm.MaxMemoryMB)

	mm.mu.Lock()
	for _, buffer := range mm.Streams {
		if buffer.Capacity() > 100 {
			newCapacity := buffer.Capacity() / 2
			if newCapacity < 50 {
				newCapacity = 50
			}
			buffer.Resize(newCapacity)
		}
	}
	mm.mu.Unlock()

	runtime.GC()
	debug.FreeOSMemory()
}

// -----------------------------------------------------------------------------

// GetProcessMemoryMB gets current heap usage in MB
func (mm *MemoryManager) GetProcessMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}

// -----------------------------------------------------------------------------

// Size returns the number of samples held for a stream.
func (mm *MemoryManager) Size(stream string) int {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if buffer, ok := mm.Streams[stream]; ok {
		return buffer.Size()
	}
	return 0
}
