package flatten

import "sync/atomic"

// Stats counts stream outcomes. The counters are atomic so the
// parallel path can share one instance across workers.
type Stats struct {
	Records     atomic.Int64 // Source Records seen
	ParseErrors atomic.Int64 // records rejected as invalid JSON
	MissingRaw  atomic.Int64 // records with an absent or blank payload
	NoArray     atomic.Int64 // parsed records without a usable array field
	Rows        atomic.Int64 // Output Records produced
}

// Snapshot is a plain copy of the counters for reports.
type Snapshot struct {
	Records     int64 `json:"records"`
	ParseErrors int64 `json:"parseErrors"`
	MissingRaw  int64 `json:"missingRaw"`
	NoArray     int64 `json:"noArray"`
	Rows        int64 `json:"rows"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Records:     s.Records.Load(),
		ParseErrors: s.ParseErrors.Load(),
		MissingRaw:  s.MissingRaw.Load(),
		NoArray:     s.NoArray.Load(),
		Rows:        s.Rows.Load(),
	}
}
