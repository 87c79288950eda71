package domain

const (
	MinSpinDurationMs     = 2000
	MaxSpinDurationMs     = 10000
	DefaultSpinDurationMs = 5000
)

// Settings holds room policy flags. It has no behavior of its own.
type Settings struct {
	SpinDurationMs        int      `json:"spinDurationMs"`
	RemoveWinnerAfterSpin bool     `json:"removeWinnerAfterSpin"`
	AllowGames            bool     `json:"allowGames"`
	EstimateOptions       []string `json:"estimateOptions,omitempty"`
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	SpinDurationMs        *int     `json:"spinDurationMs,omitempty"`
	RemoveWinnerAfterSpin *bool    `json:"removeWinnerAfterSpin,omitempty"`
	AllowGames            *bool    `json:"allowGames,omitempty"`
	EstimateOptions       []string `json:"estimateOptions,omitempty"`
}

var defaultEstimateOptions = []string{"0", "1", "2", "3", "5", "8", "13", "21", "?"}

func DefaultSettings(kind RoomKind) Settings {
	s := Settings{SpinDurationMs: DefaultSpinDurationMs}
	if kind == KindEstimation {
		s.AllowGames = true
		s.EstimateOptions = append([]string(nil), defaultEstimateOptions...)
	}
	return s
}

// ClampSpinDuration forces ms into [MinSpinDurationMs, MaxSpinDurationMs].
func ClampSpinDuration(ms int) int {
	return min(max(ms, MinSpinDurationMs), MaxSpinDurationMs)
}

func (s Settings) Merge(p SettingsPatch) Settings {
	if p.SpinDurationMs != nil {
		s.SpinDurationMs = ClampSpinDuration(*p.SpinDurationMs)
	}
	if p.RemoveWinnerAfterSpin != nil {
		s.RemoveWinnerAfterSpin = *p.RemoveWinnerAfterSpin
	}
	if p.AllowGames != nil {
		s.AllowGames = *p.AllowGames
	}
	if p.EstimateOptions != nil {
		s.EstimateOptions = append([]string(nil), p.EstimateOptions...)
	}
	return s
}

func (p SettingsPatch) IsEmpty() bool {
	return p.SpinDurationMs == nil && p.RemoveWinnerAfterSpin == nil && p.AllowGames == nil && p.EstimateOptions == nil
}
