package room

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"huddle/domain"
)

const (
	MaxEntries         = 200
	MaxEntryNameLength = 100
)

func entryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > MaxEntryNameLength {
		return "", ErrInvalidEntryName
	}
	return name, nil
}

// editEntries runs every entry mutation: moderator only, never mid-spin.
func (a *Actor) editEntries(ctx context.Context, user string, fn func(w *domain.WheelState) error) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	if a.state.Wheel.IsSpinning() {
		return ErrSpinInProgress
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		return fn(st.Wheel)
	}); err != nil {
		return err
	}
	a.broadcast(ctx, makeEntriesUpdated(a.state.Wheel.Entries))
	return nil
}

func (a *Actor) addEntry(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	name, err := entryName(msg.Name)
	if err != nil {
		return err
	}
	return a.editEntries(ctx, user, func(w *domain.WheelState) error {
		if len(w.Entries) >= MaxEntries {
			return ErrTooManyEntries
		}
		w.Entries = append(w.Entries, domain.Entry{ID: uuid.NewString(), Name: name, Enabled: true})
		return nil
	})
}

func (a *Actor) removeEntry(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	return a.editEntries(ctx, user, func(w *domain.WheelState) error {
		if !w.RemoveEntry(msg.EntryID) {
			return ErrEntryNotFound
		}
		return nil
	})
}

func (a *Actor) updateEntry(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	name, err := entryName(msg.Name)
	if err != nil {
		return err
	}
	return a.editEntries(ctx, user, func(w *domain.WheelState) error {
		i := w.EntryIndex(msg.EntryID)
		if i < 0 {
			return ErrEntryNotFound
		}
		w.Entries[i].Name = name
		return nil
	})
}

func (a *Actor) toggleEntry(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	if msg.Enabled == nil {
		return ErrMalformedMessage
	}
	return a.editEntries(ctx, user, func(w *domain.WheelState) error {
		i := w.EntryIndex(msg.EntryID)
		if i < 0 {
			return ErrEntryNotFound
		}
		w.Entries[i].Enabled = *msg.Enabled
		return nil
	})
}

func (a *Actor) clearEntries(ctx context.Context, _ *Client, user string, _ inboundMessage) error {
	return a.editEntries(ctx, user, func(w *domain.WheelState) error {
		w.Entries = []domain.Entry{}
		return nil
	})
}

// bulkAddEntries skips blank names; it fails only when nothing is left.
func (a *Actor) bulkAddEntries(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	added := make([]domain.Entry, 0, len(msg.Names))
	for _, raw := range msg.Names {
		name, err := entryName(raw)
		if err != nil {
			continue
		}
		added = append(added, domain.Entry{ID: uuid.NewString(), Name: name, Enabled: true})
	}
	if len(added) == 0 {
		return ErrInvalidEntryName
	}
	return a.editEntries(ctx, user, func(w *domain.WheelState) error {
		if len(w.Entries)+len(added) > MaxEntries {
			return ErrTooManyEntries
		}
		w.Entries = append(w.Entries, added...)
		return nil
	})
}

func (a *Actor) spin(ctx context.Context, _ *Client, user string, _ inboundMessage) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	w := a.state.Wheel
	if w.IsSpinning() {
		return ErrAlreadySpinning
	}
	enabled := w.EnabledEntries()
	if len(enabled) < 2 {
		return ErrNotEnoughEntries
	}
	idx, err := a.opts.Picker.Pick(len(enabled))
	if err != nil {
		a.log.Error().Err(err).Msg("failed to draw spin target")
		return ErrInternal
	}
	spin := domain.SpinState{
		IsSpinning:  true,
		StartedAt:   a.now(),
		TargetIndex: idx,
		DurationMs:  domain.ClampSpinDuration(a.state.Settings.SpinDurationMs),
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		s := spin
		st.Wheel.Spin = &s
		return nil
	}); err != nil {
		return err
	}
	a.broadcast(ctx, makeSpinStarted(spin))
	a.armSpin(spin)
	a.log.Info().Str("user", user).Int("target", idx).Int("duration", spin.DurationMs).Msg("spin started")
	return nil
}

// completeSpin runs when the spin timer fires. A reset wheel or a timer from
// an earlier spin finds nothing to do.
func (a *Actor) completeSpin(ctx context.Context, startedAt time.Time) {
	w := a.state.Wheel
	if w == nil || !w.IsSpinning() || !w.Spin.StartedAt.Equal(startedAt) {
		return
	}
	a.timer = nil
	spin := *w.Spin

	enabled := w.EnabledEntries()
	if spin.TargetIndex < 0 || spin.TargetIndex >= len(enabled) {
		a.log.Warn().Int("target", spin.TargetIndex).Int("enabled", len(enabled)).Msg("spin target out of range")
		if err := a.mutate(ctx, func(st *domain.RoomState) error {
			st.Wheel.Spin = nil
			return nil
		}); err != nil {
			a.retrySpin(spin)
		}
		return
	}

	winner := enabled[spin.TargetIndex]
	var result domain.SpinResult
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		result = domain.SpinResult{
			ID:           uuid.NewString(),
			Winner:       winner.Name,
			Timestamp:    a.now(),
			RemovedAfter: st.Settings.RemoveWinnerAfterSpin,
		}
		st.Wheel.Results = append(st.Wheel.Results, result)
		if result.RemovedAfter {
			st.Wheel.RemoveEntry(winner.ID)
		}
		st.Wheel.Spin = nil
		return nil
	}); err != nil {
		a.retrySpin(spin)
		return
	}
	a.broadcast(ctx, makeSpinEnded(a.state.Wheel.Entries, result))
	a.log.Info().Str("winner", winner.Name).Msg("spin ended")
}

func (a *Actor) armSpin(spin domain.SpinState) {
	a.schedule(spin.EndsAt().Sub(a.now()), spin.StartedAt)
}

// retrySpin re-arms completion after a failed write so the spin cannot get
// stuck.
func (a *Actor) retrySpin(spin domain.SpinState) {
	a.schedule(spinRetryDelay, spin.StartedAt)
}

func (a *Actor) schedule(d time.Duration, startedAt time.Time) {
	a.stopTimer()
	if d < 0 {
		d = 0
	}
	a.timer = a.opts.Scheduler.AfterFunc(d, func() {
		_ = a.post(context.Background(), spinFired{startedAt: startedAt})
	})
}

func (a *Actor) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// resumeSpin re-arms a spin that was in flight when the room was last
// unloaded.
func (a *Actor) resumeSpin() {
	if w := a.state.Wheel; w != nil && w.IsSpinning() {
		a.armSpin(*w.Spin)
	}
}

func (a *Actor) resetWheel(ctx context.Context, _ *Client, user string, _ inboundMessage) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	if a.state.Wheel.IsSpinning() {
		return ErrAlreadySpinning
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		st.Wheel.Entries = []domain.Entry{}
		st.Wheel.Results = []domain.SpinResult{}
		st.Wheel.Spin = nil
		return nil
	}); err != nil {
		return err
	}
	a.stopTimer()
	a.broadcast(ctx, makeWheelReset(*a.state.Wheel))
	return nil
}

func (a *Actor) updateSettings(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	if msg.Settings == nil || msg.Settings.IsEmpty() {
		return ErrMalformedMessage
	}
	for _, opt := range msg.Settings.EstimateOptions {
		if strings.TrimSpace(opt) == "" {
			return ErrMalformedMessage
		}
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		st.Settings = st.Settings.Merge(*msg.Settings)
		return nil
	}); err != nil {
		return err
	}
	a.broadcast(ctx, makeSettingsUpdated(a.state.Settings))
	return nil
}
