package recorder

import "github.com/google/uuid"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(snap *RunSnapshot) (string, error) {
	if snap.ID == "" {
		return uuid.New().String(), nil
	}
	return snap.ID, nil
}

func (n *NoopRecorder) RecentRuns(int) ([]RunSummary, error) { return nil, nil }
func (n *NoopRecorder) Close() error                         { return nil }
