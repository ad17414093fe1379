package models

// RingBuffer indices and constants
const (
	RB_IDX_TIMESTAMP       = 0
	RB_IDX_ONLINE_USERS    = 1
	RB_IDX_ACTIVE_ORDERS   = 2
	RB_IDX_RECENT_SALES    = 3
	RB_IDX_CONVERSION_RATE = 4
	RB_IDX_SYNTHETIC       = 5
	RB_NUM_FEATURES        = 6
)
