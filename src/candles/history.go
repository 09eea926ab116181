package candles

import "market-sync/src/models"

// -----------------------------------------------------------------------------
// History is a fixed-size circular buffer of completed candles per
// (symbol, timeframe). True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type History struct {
	data     []models.MCandle
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewHistory creates a new buffer with fixed capacity
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 500 // Default reasonable size
	}

	return &History{
		data:     make([]models.MCandle, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a completed candle, overwriting the oldest when full
func (h *History) Append(candle models.MCandle) {
	h.data[h.index] = candle
	h.index = (h.index + 1) % h.capacity

	if h.size < h.capacity {
		h.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n most recent candles, oldest first
func (h *History) GetLatest(n int) []models.MCandle {
	if h.size == 0 || n <= 0 {
		return []models.MCandle{}
	}

	count := n
	if n > h.size {
		count = h.size
	}

	result := make([]models.MCandle, count)
	startIdx := (h.index - count + h.capacity) % h.capacity

	for i := 0; i < count; i++ {
		result[i] = h.data[(startIdx+i)%h.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all candles in insertion order (oldest to newest)
func (h *History) GetAll() []models.MCandle {
	return h.GetLatest(h.size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (h *History) Size() int {
	return h.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (h *History) Capacity() int {
	return h.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (h *History) IsFull() bool {
	return h.size == h.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (h *History) Clear() {
	h.index = 0
	h.size = 0
}
