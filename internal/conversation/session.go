package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/yairigal/train-coupon-bot/internal/logger"
	"github.com/yairigal/train-coupon-bot/internal/rail"
	"github.com/yairigal/train-coupon-bot/internal/storage"
	"log/slog"
)

// Session holds everything the dialogue knows about one user. It is
// serialized as a JSON snapshot after every handled input so a restart
// resumes mid-dialogue.
type Session struct {
	UserID int64  `json:"user_id"`
	State  State  `json:"state"`
	ID     string `json:"id"`
	Email  string `json:"email"`

	// Current search context.
	OriginID int `json:"origin_id,omitempty"`
	DestID   int `json:"dest_id,omitempty"`

	// Candidates maps display label to train for the current pick list.
	// CandidateLabels preserves the presentation order.
	Candidates      map[string]rail.Train `json:"candidates,omitempty"`
	CandidateLabels []string              `json:"candidate_labels,omitempty"`

	// LastReserved is the train of the most recent successful booking,
	// pending the save-or-not answer.
	LastReserved *rail.Train `json:"last_reserved,omitempty"`

	// Saved holds the trains kept for one-tap rebooking.
	Saved []rail.Train `json:"saved,omitempty"`
}

// SetCandidates replaces the pick list, keyed and ordered by label.
func (s *Session) SetCandidates(trains []rail.Train) {
	s.Candidates = make(map[string]rail.Train, len(trains))
	s.CandidateLabels = s.CandidateLabels[:0]
	for _, t := range trains {
		label := t.Label()
		if _, dup := s.Candidates[label]; dup {
			continue
		}
		s.Candidates[label] = t
		s.CandidateLabels = append(s.CandidateLabels, label)
	}
}

// Candidate looks up a pick-list entry by its display label.
func (s *Session) Candidate(label string) (rail.Train, bool) {
	t, ok := s.Candidates[label]
	return t, ok
}

// ClearCandidates drops the current pick list.
func (s *Session) ClearCandidates() {
	s.Candidates = nil
	s.CandidateLabels = nil
	s.OriginID = 0
	s.DestID = 0
}

// AddSaved appends a train to the saved list unless an equal one (same
// departure and arrival) is already there.
func (s *Session) AddSaved(t rail.Train) bool {
	for _, st := range s.Saved {
		if st.Same(t) {
			return false
		}
	}
	s.Saved = append(s.Saved, t)
	return true
}

// SavedLabels returns the one-line descriptions of the saved trains, in
// the order they were saved.
func (s *Session) SavedLabels() []string {
	labels := make([]string, 0, len(s.Saved))
	for _, t := range s.Saved {
		labels = append(labels, t.LineDescription())
	}
	return labels
}

// SavedByLabel finds a saved train by its one-line description.
func (s *Session) SavedByLabel(label string) (rail.Train, bool) {
	for _, t := range s.Saved {
		if t.LineDescription() == label {
			return t, true
		}
	}
	return rail.Train{}, false
}

// RemoveSaved deletes the saved train with the given description.
func (s *Session) RemoveSaved(label string) bool {
	for i, t := range s.Saved {
		if t.LineDescription() == label {
			s.Saved = append(s.Saved[:i], s.Saved[i+1:]...)
			return true
		}
	}
	return false
}

// SnapshotStore persists session snapshots between restarts.
// *storage.Store satisfies it.
type SnapshotStore interface {
	LoadSession(ctx context.Context, telegramID int64) (*storage.SessionRecord, error)
	SaveSession(ctx context.Context, telegramID int64, state string, data json.RawMessage) error
}

type sessionEntry struct {
	mu   sync.Mutex
	sess *Session
}

// Manager owns the in-memory sessions and serializes handling per user.
// Inputs from different users run concurrently; two inputs from the same
// user never overlap.
type Manager struct {
	mu      sync.RWMutex
	entries map[int64]*sessionEntry
	store   SnapshotStore
}

// NewManager builds a Manager. store may be nil for memory-only sessions.
func NewManager(store SnapshotStore) *Manager {
	return &Manager{entries: make(map[int64]*sessionEntry), store: store}
}

func (m *Manager) entry(userID int64) *sessionEntry {
	m.mu.RLock()
	e, ok := m.entries[userID]
	m.mu.RUnlock()
	if ok {
		return e
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.entries[userID]; ok {
		return e
	}
	e = &sessionEntry{}
	m.entries[userID] = e
	return e
}

// Do runs fn with exclusive access to the user's session, loading a
// persisted snapshot on first access and saving the snapshot afterwards.
// The session survives fn returning an error; snapshot write failures are
// logged and swallowed so a storage hiccup never breaks the dialogue.
func (m *Manager) Do(ctx context.Context, userID int64, fn func(*Session) error) error {
	e := m.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		e.sess = m.load(ctx, userID)
	}
	err := fn(e.sess)
	m.save(ctx, e.sess)
	return err
}

func (m *Manager) load(ctx context.Context, userID int64) *Session {
	fresh := &Session{UserID: userID, State: StateCollectID}
	if m.store == nil {
		return fresh
	}
	rec, err := m.store.LoadSession(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			logger.SESS.Warn("session load failed",
				slog.String("event", "session.load"),
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		return fresh
	}
	var sess Session
	if err := json.Unmarshal(rec.Data, &sess); err != nil {
		logger.SESS.Warn("session snapshot unreadable",
			slog.String("event", "session.load"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return fresh
	}
	sess.UserID = userID
	if rec.State != "" {
		sess.State = State(rec.State)
	}
	return &sess
}

func (m *Manager) save(ctx context.Context, sess *Session) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(sess)
	if err != nil {
		logger.SESS.Error("session marshal failed",
			slog.String("event", "session.save"),
			slog.Int64("user_id", sess.UserID),
			slog.String("err", err.Error()),
		)
		return
	}
	if err := m.store.SaveSession(ctx, sess.UserID, string(sess.State), data); err != nil {
		logger.SESS.Warn("session save failed",
			slog.String("event", "session.save"),
			slog.Int64("user_id", sess.UserID),
			slog.String("err", err.Error()),
		)
	}
}
