package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/rail"
	"github.com/yairigal/train-coupon-bot/internal/storage"
)

const (
	testUser  int64 = 1001
	testAdmin int64 = 9000

	originName = "ת\"א סבידור מרכז" // 3700
	destName   = "חיפה מרכז השמונה" // 2100
)

type fakeSearch struct {
	trains []rail.Train
	day    time.Time
	found  bool
	err    error

	resolveTrain rail.Train
	resolveFound bool
	resolveErr   error
}

func (f *fakeSearch) FirstAvailableDay(ctx context.Context, originID, destID int) ([]rail.Train, time.Time, bool, error) {
	return f.trains, f.day, f.found, f.err
}

func (f *fakeSearch) ResolveExact(ctx context.Context, originID, destID int, target rail.Train, at time.Time) (rail.Train, bool, error) {
	return f.resolveTrain, f.resolveFound, f.resolveErr
}

type fakeReserver struct {
	image []byte
	err   error

	critImage []byte
	critErr   error

	reserved  []rail.Train
	critCalls int
}

func (f *fakeReserver) ReserveTrain(ctx context.Context, id, email string, train rail.Train) ([]byte, error) {
	f.reserved = append(f.reserved, train)
	return f.image, f.err
}

func (f *fakeReserver) ReserveByCriteria(ctx context.Context, id, email string, originID, destID int, at time.Time) ([]byte, error) {
	f.critCalls++
	return f.critImage, f.critErr
}

type fakeRegistry struct {
	users   []storage.User
	upserts []int64
}

func (f *fakeRegistry) UpsertUser(ctx context.Context, telegramID int64, username string) error {
	f.upserts = append(f.upserts, telegramID)
	return nil
}

func (f *fakeRegistry) ListUsers(ctx context.Context) ([]storage.User, error) {
	return f.users, nil
}

type fakeSender struct {
	sent    map[int64][]string
	failFor map[int64]bool
}

func (f *fakeSender) SendText(userID int64, text string) error {
	if f.failFor[userID] {
		return errors.New("delivery refused")
	}
	if f.sent == nil {
		f.sent = make(map[int64][]string)
	}
	f.sent[userID] = append(f.sent[userID], text)
	return nil
}

type testBot struct {
	engine   *Engine
	sessions *Manager
	search   *fakeSearch
	reserver *fakeReserver
	registry *fakeRegistry
	sender   *fakeSender
	now      time.Time
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	b := &testBot{
		search:   &fakeSearch{},
		reserver: &fakeReserver{image: []byte("voucher-png")},
		registry: &fakeRegistry{},
		sender:   &fakeSender{},
		sessions: NewManager(nil),
		now:      time.Date(2026, 9, 1, 7, 0, 0, 0, time.Local),
	}
	b.engine = NewEngine(b.sessions, b.search, b.reserver, b.registry, b.sender, Options{
		IsAdmin:        func(userID int64) bool { return userID == testAdmin },
		BroadcastDelay: time.Millisecond,
	})
	b.engine.now = func() time.Time { return b.now }
	return b
}

func (b *testBot) state(t *testing.T, userID int64) State {
	t.Helper()
	var st State
	_ = b.sessions.Do(context.Background(), userID, func(sess *Session) error {
		st = sess.State
		return nil
	})
	return st
}

func (b *testBot) session(t *testing.T, userID int64, fn func(*Session)) {
	t.Helper()
	_ = b.sessions.Do(context.Background(), userID, func(sess *Session) error {
		fn(sess)
		return nil
	})
}

func (b *testBot) send(t *testing.T, userID int64, input string) []Reply {
	t.Helper()
	replies, err := b.engine.Handle(context.Background(), userID, input)
	if err != nil {
		t.Fatalf("Handle(%q): %v", input, err)
	}
	return replies
}

func requireText(t *testing.T, replies []Reply, substr string) {
	t.Helper()
	for _, r := range replies {
		if strings.Contains(r.Text, substr) {
			return
		}
	}
	t.Fatalf("no reply contains %q, got %v", substr, replyTexts(replies))
}

func hasPhoto(replies []Reply) bool {
	for _, r := range replies {
		if len(r.Photo) > 0 {
			return true
		}
	}
	return false
}

func replyTexts(replies []Reply) []string {
	var texts []string
	for _, r := range replies {
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
	}
	return texts
}

// reachMenu walks a fresh user through registration to the main menu.
func (b *testBot) reachMenu(t *testing.T, userID int64) {
	t.Helper()
	if _, err := b.engine.Start(context.Background(), userID, "tester"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	b.send(t, userID, "123456789")
	b.send(t, userID, "user@example.com")
	if st := b.state(t, userID); st != StateMain {
		t.Fatalf("state after registration = %q, want %q", st, StateMain)
	}
}

func TestRegistrationFlow(t *testing.T) {
	b := newTestBot(t)

	replies, err := b.engine.Start(context.Background(), testUser, "tester")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	requireText(t, replies, "enter your ID")
	if len(b.registry.upserts) != 1 || b.registry.upserts[0] != testUser {
		t.Errorf("registry upserts = %v, want [%d]", b.registry.upserts, testUser)
	}

	replies = b.send(t, testUser, "not-a-number")
	requireText(t, replies, "ID is not valid")
	if st := b.state(t, testUser); st != StateCollectID {
		t.Fatalf("state after bad id = %q", st)
	}

	replies = b.send(t, testUser, "123456789")
	requireText(t, replies, "email")

	replies = b.send(t, testUser, "bogus")
	requireText(t, replies, "Email is not valid")

	replies = b.send(t, testUser, "user@example.com")
	requireText(t, replies, "ID: 123456789")
	requireText(t, replies, "Email: user@example.com")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after email = %q", st)
	}
}

func TestEmailSkip(t *testing.T) {
	b := newTestBot(t)
	_, _ = b.engine.Start(context.Background(), testUser, "tester")
	b.send(t, testUser, "123456789")
	replies := b.send(t, testUser, "/done")
	requireText(t, replies, "Email: Not supplied")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after /done = %q", st)
	}
}

func TestStopAnywhere(t *testing.T) {
	b := newTestBot(t)
	b.reachMenu(t, testUser)
	b.send(t, testUser, OptionOrder)

	replies, err := b.engine.Stop(context.Background(), testUser)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	requireText(t, replies, "Goodbye")
	if st := b.state(t, testUser); st != StateDone {
		t.Fatalf("state after /stop = %q", st)
	}

	replies = b.send(t, testUser, "hello?")
	requireText(t, replies, "/start")
}

func TestBackReturnsToMenu(t *testing.T) {
	b := newTestBot(t)
	b.reachMenu(t, testUser)
	b.send(t, testUser, OptionOrder)
	if st := b.state(t, testUser); st != StateChooseOrigin {
		t.Fatalf("state after order = %q", st)
	}

	replies := b.send(t, testUser, BackLabel)
	requireText(t, replies, "ID: 123456789")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after back = %q", st)
	}
}

func TestBackDuringEmailCollectionKeepsID(t *testing.T) {
	b := newTestBot(t)
	_, _ = b.engine.Start(context.Background(), testUser, "tester")
	b.send(t, testUser, "123456789")

	replies := b.send(t, testUser, BackLabel)
	requireText(t, replies, "ID: 123456789")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after back = %q", st)
	}
}

func TestOrderFlow(t *testing.T) {
	b := newTestBot(t)
	dep := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	b.search.trains = []rail.Train{sampleTrain(dep, dep.Add(time.Hour))}
	b.search.day = dep
	b.search.found = true

	b.reachMenu(t, testUser)
	b.send(t, testUser, OptionOrder)

	replies := b.send(t, testUser, "מקום לא קיים")
	requireText(t, replies, "choose a station")

	b.send(t, testUser, originName)
	if st := b.state(t, testUser); st != StateChooseDest {
		t.Fatalf("state after origin = %q", st)
	}

	replies = b.send(t, testUser, destName)
	requireText(t, replies, "Displaying trains")
	if st := b.state(t, testUser); st != StateChooseTrain {
		t.Fatalf("state after dest = %q", st)
	}

	replies = b.send(t, testUser, "nonsense")
	requireText(t, replies, "select a train")

	replies = b.send(t, testUser, "08:30 - 09:30")
	requireText(t, replies, "Train #107")
	requireText(t, replies, "Save this train")
	if !hasPhoto(replies) {
		t.Error("voucher reply has no photo")
	}
	if st := b.state(t, testUser); st != StateConfirmSave {
		t.Fatalf("state after order = %q", st)
	}

	replies = b.send(t, testUser, "yes")
	requireText(t, replies, "added to your saved trains")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after save = %q", st)
	}
	b.session(t, testUser, func(sess *Session) {
		if len(sess.Saved) != 1 {
			t.Errorf("saved trains = %d, want 1", len(sess.Saved))
		}
	})
}

func TestOrderNoTrainsThisWeek(t *testing.T) {
	b := newTestBot(t)
	b.search.found = false

	b.reachMenu(t, testUser)
	b.send(t, testUser, OptionOrder)
	b.send(t, testUser, originName)
	replies := b.send(t, testUser, destName)
	requireText(t, replies, "No trains are available")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after empty week = %q", st)
	}
}

func TestOrderSearchFailure(t *testing.T) {
	b := newTestBot(t)
	b.search.err = fmt.Errorf("%w: boom", rail.ErrMalformedResponse)

	b.reachMenu(t, testUser)
	b.send(t, testUser, OptionOrder)
	b.send(t, testUser, originName)
	replies := b.send(t, testUser, destName)
	requireText(t, replies, "error occurred on the server")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after search failure = %q", st)
	}
}

func TestOrderEmptyVoucherRetries(t *testing.T) {
	b := newTestBot(t)
	dep := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	b.search.trains = []rail.Train{sampleTrain(dep, dep.Add(time.Hour))}
	b.search.day = dep
	b.search.found = true
	b.reserver.err = fmt.Errorf("%w: seat taken", rail.ErrEmptyVoucher)

	b.reachMenu(t, testUser)
	b.send(t, testUser, OptionOrder)
	b.send(t, testUser, originName)
	b.send(t, testUser, destName)
	replies := b.send(t, testUser, "08:30 - 09:30")
	requireText(t, replies, "pick another seat")
	if st := b.state(t, testUser); st != StateChooseTrain {
		t.Fatalf("state after empty voucher = %q", st)
	}
}

func TestOrderRejectionRestartsIdentity(t *testing.T) {
	b := newTestBot(t)
	dep := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	b.search.trains = []rail.Train{sampleTrain(dep, dep.Add(time.Hour))}
	b.search.day = dep
	b.search.found = true
	b.reserver.err = fmt.Errorf("%w: no barcode field", rail.ErrMalformedResponse)

	b.reachMenu(t, testUser)
	b.send(t, testUser, OptionOrder)
	b.send(t, testUser, originName)
	b.send(t, testUser, destName)
	replies := b.send(t, testUser, "08:30 - 09:30")
	requireText(t, replies, "details might be wrong")
	if st := b.state(t, testUser); st != StateCollectID {
		t.Fatalf("state after rejection = %q", st)
	}
}

func TestEditDetails(t *testing.T) {
	b := newTestBot(t)
	b.reachMenu(t, testUser)

	b.send(t, testUser, OptionEditID)
	replies := b.send(t, testUser, "555")
	requireText(t, replies, "details were updated")
	requireText(t, replies, "ID: 555")

	b.send(t, testUser, OptionEditEmail)
	replies = b.send(t, testUser, "/done")
	requireText(t, replies, "Email: Not supplied")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after edits = %q", st)
	}
}

func TestSavedTrainsEmpty(t *testing.T) {
	b := newTestBot(t)
	b.reachMenu(t, testUser)
	replies := b.send(t, testUser, OptionSaved)
	requireText(t, replies, "No saved trains")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after empty saved = %q", st)
	}
}

func TestSavedTrainRebooking(t *testing.T) {
	b := newTestBot(t)
	// Saved last week, departs daily at 08:30. Now is 07:00.
	oldDep := time.Date(2026, 8, 25, 8, 30, 0, 0, time.Local)
	saved := sampleTrain(oldDep, oldDep.Add(time.Hour))
	todayDep := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	b.search.resolveTrain = sampleTrain(todayDep, todayDep.Add(time.Hour))
	b.search.resolveFound = true
	b.reserver.critImage = []byte("voucher-png")

	b.reachMenu(t, testUser)
	b.session(t, testUser, func(sess *Session) { sess.AddSaved(saved) })

	b.send(t, testUser, OptionSaved)
	if st := b.state(t, testUser); st != StateSavedTrains {
		t.Fatalf("state after saved option = %q", st)
	}

	replies := b.send(t, testUser, saved.LineDescription())
	requireText(t, replies, "Train #107")
	if !hasPhoto(replies) {
		t.Error("rebooking reply has no photo")
	}
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after rebooking = %q", st)
	}
}

func TestSavedTrainDeparturePassed(t *testing.T) {
	b := newTestBot(t)
	b.now = time.Date(2026, 9, 1, 22, 0, 0, 0, time.Local)
	oldDep := time.Date(2026, 8, 25, 8, 30, 0, 0, time.Local)
	saved := sampleTrain(oldDep, oldDep.Add(time.Hour))

	b.reachMenu(t, testUser)
	b.session(t, testUser, func(sess *Session) { sess.AddSaved(saved) })
	b.send(t, testUser, OptionSaved)

	replies := b.send(t, testUser, saved.LineDescription())
	requireText(t, replies, "already passed")
	if st := b.state(t, testUser); st != StateSavedTrains {
		t.Fatalf("state after passed train = %q", st)
	}
	if len(b.reserver.reserved) != 0 || b.reserver.critCalls != 0 {
		t.Error("reservation attempted for a passed train")
	}
}

func TestSavedTrainGoneFromSchedule(t *testing.T) {
	b := newTestBot(t)
	oldDep := time.Date(2026, 8, 25, 8, 30, 0, 0, time.Local)
	saved := sampleTrain(oldDep, oldDep.Add(time.Hour))
	b.search.resolveFound = false

	b.reachMenu(t, testUser)
	b.session(t, testUser, func(sess *Session) { sess.AddSaved(saved) })
	b.send(t, testUser, OptionSaved)

	replies := b.send(t, testUser, saved.LineDescription())
	requireText(t, replies, "could not be found")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after gone train = %q", st)
	}
}

func TestDeleteSavedTrain(t *testing.T) {
	b := newTestBot(t)
	oldDep := time.Date(2026, 8, 25, 8, 30, 0, 0, time.Local)
	saved := sampleTrain(oldDep, oldDep.Add(time.Hour))

	b.reachMenu(t, testUser)
	b.session(t, testUser, func(sess *Session) { sess.AddSaved(saved) })

	b.send(t, testUser, OptionDeleteSaved)
	replies := b.send(t, testUser, saved.LineDescription())
	requireText(t, replies, "removed from your saved trains")
	b.session(t, testUser, func(sess *Session) {
		if len(sess.Saved) != 0 {
			t.Errorf("saved trains = %d after delete", len(sess.Saved))
		}
	})
}

func TestBroadcastAdminOnly(t *testing.T) {
	b := newTestBot(t)
	b.reachMenu(t, testUser)

	replies, err := b.engine.StartBroadcast(context.Background(), testUser)
	if err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}
	if len(replies) != 0 {
		t.Errorf("non-admin got %d replies, want 0", len(replies))
	}
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("non-admin state changed to %q", st)
	}
}

func TestBroadcastFanOut(t *testing.T) {
	b := newTestBot(t)
	b.registry.users = []storage.User{
		{TelegramID: 1}, {TelegramID: 2}, {TelegramID: 3},
	}
	b.sender.failFor = map[int64]bool{2: true}

	b.reachMenu(t, testAdmin)
	replies, err := b.engine.StartBroadcast(context.Background(), testAdmin)
	if err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}
	requireText(t, replies, "message to broadcast")

	replies = b.send(t, testAdmin, "service notice")
	requireText(t, replies, "delivered to 2 of 3")
	if st := b.state(t, testAdmin); st != StateMain {
		t.Fatalf("state after broadcast = %q", st)
	}
	for _, id := range []int64{1, 3} {
		got := b.sender.sent[id]
		if len(got) != 1 || got[0] != "service notice" {
			t.Errorf("user %d received %v", id, got)
		}
	}
	if len(b.sender.sent[2]) != 0 {
		t.Error("failed recipient unexpectedly received the message")
	}
}

func TestBroadcastWithoutIdentityStartsRegistration(t *testing.T) {
	b := newTestBot(t)
	b.registry.users = []storage.User{{TelegramID: 1}}

	// The admin never registered, so there is no stored id yet.
	replies, err := b.engine.StartBroadcast(context.Background(), testAdmin)
	if err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}
	requireText(t, replies, "message to broadcast")

	replies = b.send(t, testAdmin, "service notice")
	requireText(t, replies, "delivered to 1 of 1")
	requireText(t, replies, "enter your ID")
	if st := b.state(t, testAdmin); st != StateCollectID {
		t.Fatalf("state after broadcast without identity = %q, want %q", st, StateCollectID)
	}
}

func TestHandlerFailureFallsBackToMenu(t *testing.T) {
	b := newTestBot(t)
	dep := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	b.search.trains = []rail.Train{sampleTrain(dep, dep.Add(time.Hour))}
	b.search.day = dep
	b.search.found = true
	b.reserver.err = errors.New("wholly unexpected")

	b.reachMenu(t, testUser)
	b.send(t, testUser, OptionOrder)
	b.send(t, testUser, originName)
	b.send(t, testUser, destName)

	replies, err := b.engine.Handle(context.Background(), testUser, "08:30 - 09:30")
	if err == nil {
		t.Fatal("Handle swallowed an unexpected failure")
	}
	requireText(t, replies, "general error")
	if st := b.state(t, testUser); st != StateMain {
		t.Fatalf("state after failure = %q", st)
	}
}
