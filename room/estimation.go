package room

import (
	"context"
	"slices"
	"strings"

	"huddle/domain"
)

func (a *Actor) vote(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	if msg.Value == nil {
		return ErrMalformedMessage
	}
	if !a.state.IsUser(user) {
		return ErrSpectator
	}
	value := strings.TrimSpace(*msg.Value)
	if opts := a.state.Settings.EstimateOptions; value != "" && len(opts) > 0 && !slices.Contains(opts, value) {
		return ErrInvalidVote
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		if st.Estimation.Votes == nil {
			st.Estimation.Votes = map[string]string{}
		}
		if value == "" {
			delete(st.Estimation.Votes, user)
		} else {
			st.Estimation.Votes[user] = value
		}
		return nil
	}); err != nil {
		return err
	}
	a.broadcast(ctx, makeVoteUpdated(user, value != ""))
	if a.state.Estimation.Revealed {
		a.broadcast(ctx, makeEstimation("votesShown", a.state))
	}
	return nil
}

func (a *Actor) showVotes(ctx context.Context, _ *Client, user string, _ inboundMessage) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		st.Estimation.Revealed = true
		return nil
	}); err != nil {
		return err
	}
	a.broadcast(ctx, makeEstimation("votesShown", a.state))
	return nil
}

func (a *Actor) resetVotes(ctx context.Context, _ *Client, user string, _ inboundMessage) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		st.Estimation.Votes = map[string]string{}
		st.Estimation.Revealed = false
		return nil
	}); err != nil {
		return err
	}
	a.broadcast(ctx, makeEstimation("votesReset", a.state))
	return nil
}

// completeSession is terminal. An active game ends with it.
func (a *Actor) completeSession(ctx context.Context, _ *Client, user string, _ inboundMessage) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	var ended *gameMessage
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		if st.Game != nil {
			st.Game.Finish("Session completed by %s", user)
			msg := makeGame("gameEnded", a.opts.Games.View(st.Game))
			ended = &msg
			st.Game = nil
		}
		st.Status = domain.StatusCompleted
		return nil
	}); err != nil {
		return err
	}
	if ended != nil {
		a.broadcast(ctx, *ended)
	}
	a.broadcast(ctx, makeSessionCompleted())
	a.log.Info().Str("user", user).Msg("session completed")
	return nil
}
