package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/rail"
)

type handlerFunc func(e *Engine, ctx context.Context, sess *Session, input string) ([]Reply, error)

var handlers = map[State]handlerFunc{
	StateCollectID:    (*Engine).handleCollectID,
	StateCollectEmail: (*Engine).handleCollectEmail,
	StateMain:         (*Engine).handleMain,
	StateEditID:       (*Engine).handleEditID,
	StateEditEmail:    (*Engine).handleEditEmail,
	StateChooseOrigin: (*Engine).handleChooseOrigin,
	StateChooseDest:   (*Engine).handleChooseDest,
	StateChooseTrain:  (*Engine).handleChooseTrain,
	StateConfirmSave:  (*Engine).handleConfirmSave,
	StateSavedTrains:  (*Engine).handleSavedTrains,
	StateDeleteSaved:  (*Engine).handleDeleteSaved,
	StateBroadcast:    (*Engine).handleBroadcast,
}

func (e *Engine) handleCollectID(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	if !ValidID(input) {
		return []Reply{{Text: msgInvalidID}}, nil
	}
	sess.ID = input
	sess.State = StateCollectEmail
	return []Reply{{Text: msgAskEmail}}, nil
}

func (e *Engine) handleCollectEmail(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	if input == "/done" {
		sess.Email = ""
		return e.mainMenu(sess), nil
	}
	if !ValidEmail(input) {
		return []Reply{{Text: msgInvalidEmail}}, nil
	}
	sess.Email = input
	return e.mainMenu(sess), nil
}

func (e *Engine) handleMain(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	switch input {
	case OptionEditID:
		sess.State = StateEditID
		return []Reply{{Text: msgAskNewID, RemoveKeyboard: true}}, nil
	case OptionEditEmail:
		sess.State = StateEditEmail
		return []Reply{{Text: msgAskNewEmail, RemoveKeyboard: true}}, nil
	case OptionOrder:
		sess.State = StateChooseOrigin
		return []Reply{{Text: msgChooseOrigin, Keyboard: stationKeyboard()}}, nil
	case OptionSaved:
		if len(sess.Saved) == 0 {
			return append([]Reply{{Text: msgNoSaved}}, e.mainMenu(sess)...), nil
		}
		sess.State = StateSavedTrains
		return []Reply{{Text: msgChooseSaved, Keyboard: savedKeyboard(sess)}}, nil
	case OptionDeleteSaved:
		if len(sess.Saved) == 0 {
			return append([]Reply{{Text: msgNoSaved}}, e.mainMenu(sess)...), nil
		}
		sess.State = StateDeleteSaved
		return []Reply{{Text: msgChooseDelete, Keyboard: savedKeyboard(sess)}}, nil
	default:
		return e.mainMenu(sess), nil
	}
}

func (e *Engine) handleEditID(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	if !ValidID(input) {
		return []Reply{{Text: msgInvalidID}}, nil
	}
	sess.ID = input
	return append([]Reply{{Text: msgDetailsUpdated}}, e.mainMenu(sess)...), nil
}

func (e *Engine) handleEditEmail(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	if input == "/done" {
		sess.Email = ""
		return append([]Reply{{Text: msgDetailsUpdated}}, e.mainMenu(sess)...), nil
	}
	if !ValidEmail(input) {
		return []Reply{{Text: msgInvalidEmail}}, nil
	}
	sess.Email = input
	return append([]Reply{{Text: msgDetailsUpdated}}, e.mainMenu(sess)...), nil
}

func (e *Engine) handleChooseOrigin(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	id, ok := rail.StationNameToID(input)
	if !ok {
		return []Reply{{Text: msgUnknownStation, Keyboard: stationKeyboard()}}, nil
	}
	sess.OriginID = id
	sess.State = StateChooseDest
	return []Reply{{Text: msgChooseDest, Keyboard: stationKeyboard()}}, nil
}

func (e *Engine) handleChooseDest(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	id, ok := rail.StationNameToID(input)
	if !ok {
		return []Reply{{Text: msgUnknownStation, Keyboard: stationKeyboard()}}, nil
	}
	sess.DestID = id

	replies := []Reply{{Text: msgSearching, RemoveKeyboard: true}}
	trains, day, found, err := e.search.FirstAvailableDay(ctx, sess.OriginID, sess.DestID)
	if err != nil {
		return append(replies, e.remoteFailure(sess)...), nil
	}
	if !found {
		replies = append(replies, Reply{Text: msgNoTrains})
		return append(replies, e.mainMenu(sess)...), nil
	}

	sess.SetCandidates(trains)
	sess.State = StateChooseTrain
	origin, _ := rail.StationIDToName(sess.OriginID)
	dest, _ := rail.StationIDToName(sess.DestID)
	header := fmt.Sprintf("Displaying trains for\n%s -> %s\non %s", origin, dest, day.Format("Mon Jan _2"))
	replies = append(replies, Reply{Text: header, Keyboard: candidateKeyboard(sess)})
	return replies, nil
}

func (e *Engine) handleChooseTrain(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	train, ok := sess.Candidate(input)
	if !ok {
		return []Reply{{Text: msgChooseTrain, Keyboard: candidateKeyboard(sess)}}, nil
	}

	replies := []Reply{{Text: msgOrdering, RemoveKeyboard: true}}
	image, err := e.reserver.ReserveTrain(ctx, sess.ID, sess.Email, train)
	switch {
	case err == nil:
	case errors.Is(err, rail.ErrEmptyVoucher):
		replies = append(replies, Reply{Text: msgEmptyVoucher, Keyboard: candidateKeyboard(sess)})
		return replies, nil
	case errors.Is(err, rail.ErrMalformedResponse), errors.Is(err, rail.ErrMissingField):
		// The order itself was rejected, so the stored details are suspect.
		sess.State = StateCollectID
		replies = append(replies,
			Reply{Text: msgDetailsRejected},
			Reply{Text: msgWelcome},
		)
		return replies, nil
	default:
		return nil, err
	}

	sess.LastReserved = &train
	sess.ClearCandidates()
	sess.State = StateConfirmSave
	replies = append(replies,
		Reply{Text: train.Description()},
		Reply{Photo: image},
		Reply{Text: msgAskSave, Keyboard: withBack(yesNoKeyboard)},
	)
	return replies, nil
}

func (e *Engine) handleConfirmSave(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	switch {
	case strings.EqualFold(input, "yes"):
		if sess.LastReserved != nil {
			sess.AddSaved(*sess.LastReserved)
		}
		sess.LastReserved = nil
		return append([]Reply{{Text: msgTrainSaved}}, e.mainMenu(sess)...), nil
	case strings.EqualFold(input, "no"):
		sess.LastReserved = nil
		return e.mainMenu(sess), nil
	default:
		return []Reply{{Text: msgYesOrNo, Keyboard: withBack(yesNoKeyboard)}}, nil
	}
}

func (e *Engine) handleSavedTrains(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	saved, ok := sess.SavedByLabel(input)
	if !ok {
		return []Reply{{Text: msgChooseSaved, Keyboard: savedKeyboard(sess)}}, nil
	}

	now := e.now()
	target := shiftToDay(saved, now)
	if !target.Departure.After(now) {
		return []Reply{{Text: msgTrainPassed, Keyboard: savedKeyboard(sess)}}, nil
	}

	resolved, found, err := e.search.ResolveExact(ctx, saved.OriginID, saved.DestID, target, target.Departure.Add(-time.Minute))
	if err != nil {
		return e.remoteFailure(sess), nil
	}
	if !found {
		return append([]Reply{{Text: msgTrainGone}}, e.mainMenu(sess)...), nil
	}

	replies := []Reply{{Text: msgOrdering, RemoveKeyboard: true}}
	image, err := e.reserver.ReserveByCriteria(ctx, sess.ID, sess.Email, saved.OriginID, saved.DestID, resolved.Departure.Add(-time.Minute))
	switch {
	case err == nil:
	case errors.Is(err, rail.ErrNoTrainFound):
		replies = append(replies, Reply{Text: msgTrainGone})
		return append(replies, e.mainMenu(sess)...), nil
	case errors.Is(err, rail.ErrEmptyVoucher):
		replies = append(replies, Reply{Text: msgEmptyVoucher})
		return append(replies, e.mainMenu(sess)...), nil
	case errors.Is(err, rail.ErrMalformedResponse), errors.Is(err, rail.ErrMissingField):
		return append(replies, e.remoteFailure(sess)...), nil
	default:
		return nil, err
	}

	replies = append(replies,
		Reply{Text: resolved.Description()},
		Reply{Photo: image},
	)
	return append(replies, e.mainMenu(sess)...), nil
}

func (e *Engine) handleDeleteSaved(ctx context.Context, sess *Session, input string) ([]Reply, error) {
	if !sess.RemoveSaved(input) {
		return []Reply{{Text: msgChooseDelete, Keyboard: savedKeyboard(sess)}}, nil
	}
	return append([]Reply{{Text: msgTrainDeleted}}, e.mainMenu(sess)...), nil
}

// remoteFailure reports a schedule or reservation endpoint problem and
// falls back to the menu.
func (e *Engine) remoteFailure(sess *Session) []Reply {
	return append([]Reply{{Text: msgRemoteError}}, e.mainMenu(sess)...)
}

// shiftToDay re-anchors a saved train's times on the given day, keeping the
// clock times. An arrival clock earlier than the departure clock means the
// ride crosses midnight.
func shiftToDay(t rail.Train, day time.Time) rail.Train {
	dep := time.Date(day.Year(), day.Month(), day.Day(),
		t.Departure.Hour(), t.Departure.Minute(), t.Departure.Second(), 0, time.Local)
	arr := time.Date(day.Year(), day.Month(), day.Day(),
		t.Arrival.Hour(), t.Arrival.Minute(), t.Arrival.Second(), 0, time.Local)
	if arr.Before(dep) {
		arr = arr.AddDate(0, 0, 1)
	}
	t.Departure = dep
	t.Arrival = arr
	return t
}
