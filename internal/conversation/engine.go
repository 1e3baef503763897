package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/logger"
	"github.com/yairigal/train-coupon-bot/internal/rail"
	"github.com/yairigal/train-coupon-bot/internal/storage"
	"log/slog"
)

// Reply is one transport-neutral outbound message. The Telegram adapter
// turns it into the corresponding bot API calls.
type Reply struct {
	Text string
	// Keyboard, when set, replaces the user's reply keyboard with the
	// given button rows.
	Keyboard [][]string
	// Inline renders Keyboard as inline buttons under the message instead.
	Inline bool
	// RemoveKeyboard clears any previously shown reply keyboard.
	RemoveKeyboard bool
	// Photo is a raw image attached to the message.
	Photo []byte
}

// Searcher finds bookable departures. *rail.SearchService satisfies it.
type Searcher interface {
	FirstAvailableDay(ctx context.Context, originID, destID int) ([]rail.Train, time.Time, bool, error)
	ResolveExact(ctx context.Context, originID, destID int, target rail.Train, at time.Time) (rail.Train, bool, error)
}

// Reserver books seats. *rail.ReservationService satisfies it.
type Reserver interface {
	ReserveTrain(ctx context.Context, id, email string, train rail.Train) ([]byte, error)
	ReserveByCriteria(ctx context.Context, id, email string, originID, destID int, at time.Time) ([]byte, error)
}

// UserRegistry records users for the broadcast fan-out.
// *storage.Store satisfies it.
type UserRegistry interface {
	UpsertUser(ctx context.Context, telegramID int64, username string) error
	ListUsers(ctx context.Context) ([]storage.User, error)
}

// DirectSender delivers a text message to a user outside the current
// exchange. The Telegram adapter implements it on top of its dispatcher.
type DirectSender interface {
	SendText(userID int64, text string) error
}

// Engine drives the dialogue: it routes each input to the handler of the
// user's current state and collects the replies to send back.
type Engine struct {
	sessions *Manager
	search   Searcher
	reserver Reserver
	users    UserRegistry
	sender   DirectSender

	isAdmin        func(int64) bool
	broadcastDelay time.Duration
	now            func() time.Time
}

// Options carries the Engine knobs that have no sensible zero value.
type Options struct {
	// IsAdmin gates the broadcast command. A nil gate means no admins.
	IsAdmin        func(userID int64) bool
	BroadcastDelay time.Duration
}

// NewEngine wires the dialogue engine.
func NewEngine(sessions *Manager, search Searcher, reserver Reserver, users UserRegistry, sender DirectSender, opts Options) *Engine {
	delay := opts.BroadcastDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &Engine{
		sessions:       sessions,
		search:         search,
		reserver:       reserver,
		users:          users,
		sender:         sender,
		isAdmin:        opts.IsAdmin,
		broadcastDelay: delay,
		now:            time.Now,
	}
}

// Start handles /start: registers the user for broadcast and begins (or
// restarts) identity collection.
func (e *Engine) Start(ctx context.Context, userID int64, username string) ([]Reply, error) {
	if e.users != nil {
		if err := e.users.UpsertUser(ctx, userID, username); err != nil {
			logger.SESS.Warn("user registration failed",
				slog.String("event", "session.register"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
	}
	var replies []Reply
	err := e.sessions.Do(ctx, userID, func(sess *Session) error {
		sess.State = StateCollectID
		sess.ClearCandidates()
		sess.LastReserved = nil
		replies = append(replies, Reply{Text: msgWelcome, RemoveKeyboard: true})
		return nil
	})
	return replies, err
}

// Stop handles /stop: ends the dialogue from any state.
func (e *Engine) Stop(ctx context.Context, userID int64) ([]Reply, error) {
	var replies []Reply
	err := e.sessions.Do(ctx, userID, func(sess *Session) error {
		sess.State = StateDone
		sess.ClearCandidates()
		sess.LastReserved = nil
		replies = append(replies, Reply{Text: msgGoodbye, RemoveKeyboard: true})
		return nil
	})
	return replies, err
}

// StartBroadcast handles /broadcast. Non-admin callers are ignored without
// a reply so the command stays invisible to them.
func (e *Engine) StartBroadcast(ctx context.Context, userID int64) ([]Reply, error) {
	if e.isAdmin == nil || !e.isAdmin(userID) {
		return nil, nil
	}
	var replies []Reply
	err := e.sessions.Do(ctx, userID, func(sess *Session) error {
		sess.State = StateBroadcast
		replies = append(replies, Reply{Text: msgAskBroadcast, RemoveKeyboard: true})
		return nil
	})
	return replies, err
}

// Handle routes one text input through the state machine and returns the
// replies to deliver. An unexpected handler failure forces the session back
// to the main menu and reports a generic notice alongside the error.
func (e *Engine) Handle(ctx context.Context, userID int64, input string) ([]Reply, error) {
	var replies []Reply
	err := e.sessions.Do(ctx, userID, func(sess *Session) error {
		if input == BackLabel && backable[sess.State] {
			replies = e.mainMenu(sess)
			return nil
		}

		handler, ok := handlers[sess.State]
		if !ok {
			replies = append(replies, Reply{Text: msgStartHint})
			return nil
		}

		out, err := handler(e, ctx, sess, input)
		if err != nil {
			logger.SESS.Error("handler failed",
				slog.String("event", "session.handle"),
				slog.Int64("user_id", userID),
				slog.String("state", string(sess.State)),
				slog.String("err", err.Error()),
			)
			replies = append(replies, Reply{Text: msgGeneralError})
			replies = append(replies, e.mainMenu(sess)...)
			return fmt.Errorf("handle state %s: %w", sess.State, err)
		}
		replies = append(replies, out...)
		return nil
	})
	return replies, err
}

// mainMenu renders the options menu with the stored identity summary and
// moves the session to the menu state.
func (e *Engine) mainMenu(sess *Session) []Reply {
	sess.State = StateMain
	email := sess.Email
	if email == "" {
		email = "Not supplied"
	}
	text := fmt.Sprintf("ID: %s\nEmail: %s\nPlease choose an option:", sess.ID, email)
	return []Reply{{Text: text, Keyboard: menuRows, Inline: true}}
}

// withBack appends the back sentinel as a final row.
func withBack(rows [][]string) [][]string {
	return append(rows, []string{BackLabel})
}

// keyboardRows lays items out perRow buttons per row.
func keyboardRows(items []string, perRow int) [][]string {
	if perRow <= 0 {
		perRow = 1
	}
	var rows [][]string
	for len(items) > 0 {
		n := perRow
		if len(items) < n {
			n = len(items)
		}
		rows = append(rows, items[:n:n])
		items = items[n:]
	}
	return rows
}

func stationKeyboard() [][]string {
	return withBack(keyboardRows(rail.StationNames(), 2))
}

func candidateKeyboard(sess *Session) [][]string {
	return withBack(keyboardRows(sess.CandidateLabels, 3))
}

func savedKeyboard(sess *Session) [][]string {
	return withBack(keyboardRows(sess.SavedLabels(), 1))
}
