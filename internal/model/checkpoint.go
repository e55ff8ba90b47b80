package model

// ProcessingPhase tags a checkpoint row. Replay marks its progress
// PENDING and flips to CONFIRMED once the replayed range is complete,
// so a crash mid-replay is detected and re-replayed on the next start.
type ProcessingPhase string

const (
	PhasePending   ProcessingPhase = "pending"
	PhaseConfirmed ProcessingPhase = "confirmed"
)

// Checkpoint records the last processed bar open time for one
// (instrument, timeframe) series.
type Checkpoint struct {
	Instrument   string          `json:"instrument"`
	Timeframe    string          `json:"timeframe"`
	LastOpenTime int64           `json:"last_open_time"`
	Phase        ProcessingPhase `json:"phase"`
}
