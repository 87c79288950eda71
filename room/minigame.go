package room

import (
	"context"

	"huddle/domain"
)

func (a *Actor) startGame(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	if !a.state.Settings.AllowGames {
		return ErrGamesDisabled
	}
	if a.state.Game != nil && !a.state.Game.IsCompleted() {
		return ErrGameInProgress
	}
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		session, err := a.opts.Games.Start(msg.GameType, user, st.ConnectedActiveUsers(), a.now())
		if err != nil {
			return err
		}
		st.Game = session
		return nil
	}); err != nil {
		return err
	}
	a.broadcast(ctx, makeGame("gameStarted", a.opts.Games.View(a.state.Game)))
	a.sendGameKey(ctx)
	a.log.Info().Str("user", user).Str("game", string(msg.GameType)).Msg("game started")
	return nil
}

// submitGameMove hands a move to the active engine. Rule violations are part
// of the game log and go out to everyone; framework rejections only reach
// the sender.
func (a *Actor) submitGameMove(ctx context.Context, _ *Client, user string, msg inboundMessage) error {
	if msg.Value == nil {
		return ErrMalformedMessage
	}
	if a.state.Game == nil {
		return ErrNoActiveGame
	}
	var ended *gameMessage
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		if err := a.opts.Games.Submit(st.Game, user, *msg.Value, a.now()); err != nil {
			return err
		}
		if st.Game.IsCompleted() {
			m := makeGame("gameEnded", a.opts.Games.View(st.Game))
			ended = &m
			st.Game = nil
		}
		return nil
	}); err != nil {
		return err
	}
	if ended != nil {
		a.broadcast(ctx, *ended)
		return nil
	}
	a.broadcast(ctx, makeGame("gameUpdated", a.opts.Games.View(a.state.Game)))
	a.sendGameKey(ctx)
	return nil
}

func (a *Actor) endGame(ctx context.Context, _ *Client, user string, _ inboundMessage) error {
	if err := a.requireModerator(user); err != nil {
		return err
	}
	if a.state.Game == nil {
		return ErrNoActiveGame
	}
	var ended gameMessage
	if err := a.mutate(ctx, func(st *domain.RoomState) error {
		st.Game.Finish("%s ended the game", user)
		ended = makeGame("gameEnded", a.opts.Games.View(st.Game))
		st.Game = nil
		return nil
	}); err != nil {
		return err
	}
	a.broadcast(ctx, ended)
	return nil
}

// sendGameKey gives the participant entitled to it the private half of the
// game state.
func (a *Actor) sendGameKey(ctx context.Context) {
	if a.state.Game == nil {
		return
	}
	holder, key, ok := a.opts.Games.Key(a.state.Game)
	if !ok {
		return
	}
	a.sendToUser(ctx, holder, makeGameKey(key))
}
