package room

import (
	"context"
	"slices"
	"time"

	"github.com/unotable/uno-server-go/internal/game"
	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/game/rules"
	"go.uber.org/zap"
)

const recordTimeout = 5 * time.Second

// forward turns round events into messages. It runs on the room goroutine,
// inside whichever round call published the event.
func (r *Room) forward(evt rules.Event) {
	switch evt.Type {
	case rules.EventRoundStarted:
		msg := newMessage(TypeGameStarted)
		msg["roomId"] = r.id
		msg["roundId"] = evt.RoundID
		msg["players"] = slices.Clone(r.members)
		msg["firstPlayerId"] = evt.PlayerID
		if evt.Card != nil {
			msg["topCard"] = evt.Card.View()
		}
		r.broadcast(msg)

	case rules.EventCardPlayed:
		msg := newMessage(TypeCardPlayed)
		msg["playerId"] = evt.PlayerID
		msg["card"] = evt.Card.View()
		msg["pendingPenalty"] = evt.Amount
		r.broadcast(msg)

	case rules.EventPlayRejected:
		if !r.cfg.ReportIllegalPlays {
			return
		}
		msg := newMessage(TypePlayRejected)
		msg["reason"] = evt.Reason
		if len(evt.Metadata) > 0 {
			msg["details"] = evt.Metadata
		}
		r.sender.Send(evt.PlayerID, msg)

	case rules.EventCardsDrawn:
		drawn := newMessage(TypeDrawnCards)
		drawn["cards"] = cards.Views(evt.Cards)
		r.sender.Send(evt.PlayerID, drawn)

		others := newMessage(TypePlayerDrew)
		others["playerId"] = evt.PlayerID
		others["count"] = evt.Amount
		for _, id := range r.members {
			if id != evt.PlayerID {
				r.sender.Send(id, others)
			}
		}

	case rules.EventDeckReshuffled:
		msg := newMessage(TypeDeckReshuffled)
		msg["cards"] = evt.Amount
		r.broadcast(msg)

	case rules.EventTurnAdvanced:
		msg := newMessage(TypeTurnChanged)
		msg["playerId"] = evt.PlayerID
		r.broadcast(msg)

	case rules.EventDirectionReversed:
		msg := newMessage(TypeDirectionChanged)
		msg["direction"] = rules.Direction(evt.Amount).String()
		r.broadcast(msg)

	case rules.EventPlayerHasUno:
		msg := newMessage(TypePlayerHasUno)
		msg["playerId"] = evt.PlayerID
		r.broadcast(msg)

	case rules.EventGameOver:
		r.gameOver(evt)

	case rules.EventRoundAborted:
		if r.replays != nil {
			r.replays.ClearReplay(evt.RoundID)
		}
		msg := newMessage(TypeRoundAborted)
		msg["reason"] = evt.Reason
		r.broadcast(msg)
	}
}

// gameOver runs before the round resets its table, so the final snapshot
// still holds every hand.
func (r *Room) gameOver(evt rules.Event) {
	result, _ := r.round.LastResult()
	r.finished = result

	msg := newMessage(TypeGameOver)
	msg["winnerId"] = evt.PlayerID
	msg["winnerName"] = evt.Metadata["winner_name"]
	msg["score"] = evt.Amount
	msg["result"] = result

	matchOver := false
	if r.match != nil && result != nil {
		over, err := r.match.RecordRound(result)
		if err != nil {
			r.logger.Error("failed to score round", zap.String("round_id", evt.RoundID), zap.Error(err))
		}
		matchOver = over
		msg["standings"] = r.match.Standings()
	}
	r.broadcast(msg)

	if matchOver {
		snap := r.match.Snapshot()
		r.logger.Info("match over",
			zap.String("match_id", snap.ID),
			zap.String("winner", snap.Winner),
			zap.Int("rounds", len(snap.Rounds)),
		)
		over := newMessage(TypeMatchOver)
		over["roomId"] = r.id
		over["winnerId"] = snap.Winner
		over["standings"] = snap.Players
		r.broadcast(over)
	}

	if r.replays != nil {
		r.replays.RecordState(evt.RoundID, r.round.Snapshot())
		if err := r.replays.SaveReplay(evt.RoundID); err != nil {
			r.logger.Error("failed to save replay", zap.String("round_id", evt.RoundID), zap.Error(err))
		}
	}

	if r.recorder != nil && result != nil {
		r.record(result)
	}
}

func (r *Room) record(result *game.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.recorder.RecordRoundResult(ctx, result); err != nil {
		r.logger.Error("failed to record round result",
			zap.String("round_id", result.RoundID),
			zap.Error(err),
		)
	}
}
