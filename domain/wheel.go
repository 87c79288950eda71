package domain

import "time"

type Entry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type SpinResult struct {
	ID           string    `json:"id"`
	Winner       string    `json:"winner"`
	Timestamp    time.Time `json:"timestamp"`
	RemovedAfter bool      `json:"removedAfter"`
}

type SpinState struct {
	IsSpinning  bool      `json:"isSpinning"`
	StartedAt   time.Time `json:"startedAt"`
	TargetIndex int       `json:"targetIndex"`
	DurationMs  int       `json:"duration"`
}

// EndsAt is when the scheduled completion must fire.
func (s SpinState) EndsAt() time.Time {
	return s.StartedAt.Add(time.Duration(s.DurationMs) * time.Millisecond)
}

type WheelState struct {
	Entries []Entry      `json:"entries"`
	Results []SpinResult `json:"results"`
	Spin    *SpinState   `json:"spin,omitempty"`
}

func (w *WheelState) IsSpinning() bool {
	return w.Spin != nil && w.Spin.IsSpinning
}

func (w *WheelState) EnabledEntries() []Entry {
	enabled := make([]Entry, 0, len(w.Entries))
	for _, e := range w.Entries {
		if e.Enabled {
			enabled = append(enabled, e)
		}
	}
	return enabled
}

func (w *WheelState) EntryIndex(id string) int {
	for i, e := range w.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (w *WheelState) RemoveEntry(id string) bool {
	i := w.EntryIndex(id)
	if i < 0 {
		return false
	}
	w.Entries = append(w.Entries[:i], w.Entries[i+1:]...)
	return true
}
