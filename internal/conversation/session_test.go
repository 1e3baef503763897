package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/rail"
)

func sampleTrain(dep, arr time.Time) rail.Train {
	return rail.Train{
		Departure: dep,
		Arrival:   arr,
		OriginID:  3700,
		DestID:    2100,
		Number:    107,
	}
}

func TestAddSavedDeduplicates(t *testing.T) {
	dep := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	arr := dep.Add(45 * time.Minute)
	sess := &Session{}

	if !sess.AddSaved(sampleTrain(dep, arr)) {
		t.Fatal("first AddSaved returned false")
	}

	// Same times under a different number still count as the same train.
	dup := sampleTrain(dep, arr)
	dup.Number = 999
	if sess.AddSaved(dup) {
		t.Error("AddSaved accepted a duplicate with matching times")
	}
	if len(sess.Saved) != 1 {
		t.Fatalf("saved list has %d entries, want 1", len(sess.Saved))
	}

	other := sampleTrain(dep.Add(time.Hour), arr.Add(time.Hour))
	if !sess.AddSaved(other) {
		t.Error("AddSaved rejected a distinct train")
	}
}

func TestRemoveSaved(t *testing.T) {
	dep := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	train := sampleTrain(dep, dep.Add(time.Hour))
	sess := &Session{}
	sess.AddSaved(train)

	if sess.RemoveSaved("no such label") {
		t.Error("RemoveSaved matched a bogus label")
	}
	if !sess.RemoveSaved(train.LineDescription()) {
		t.Error("RemoveSaved missed an existing train")
	}
	if len(sess.Saved) != 0 {
		t.Errorf("saved list has %d entries after removal", len(sess.Saved))
	}
}

func TestSetCandidatesKeepsOrder(t *testing.T) {
	base := time.Date(2026, 9, 1, 6, 0, 0, 0, time.Local)
	trains := []rail.Train{
		sampleTrain(base, base.Add(time.Hour)),
		sampleTrain(base.Add(time.Hour), base.Add(2*time.Hour)),
		sampleTrain(base.Add(2*time.Hour), base.Add(3*time.Hour)),
	}
	sess := &Session{}
	sess.SetCandidates(trains)

	if len(sess.CandidateLabels) != 3 {
		t.Fatalf("got %d labels, want 3", len(sess.CandidateLabels))
	}
	for i, want := range []string{"06:00 - 07:00", "07:00 - 08:00", "08:00 - 09:00"} {
		if sess.CandidateLabels[i] != want {
			t.Errorf("label[%d] = %q, want %q", i, sess.CandidateLabels[i], want)
		}
	}
	if _, ok := sess.Candidate("07:00 - 08:00"); !ok {
		t.Error("Candidate lookup failed for a listed label")
	}
}

func TestManagerSerializesPerUser(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(ctx, 42, func(sess *Session) error {
				sess.OriginID++
				return nil
			})
		}()
	}
	wg.Wait()

	_ = m.Do(ctx, 42, func(sess *Session) error {
		if sess.OriginID != rounds {
			t.Errorf("counter = %d, want %d", sess.OriginID, rounds)
		}
		return nil
	})
}

func TestManagerFreshSessionStartsAtCollectID(t *testing.T) {
	m := NewManager(nil)
	_ = m.Do(context.Background(), 7, func(sess *Session) error {
		if sess.State != StateCollectID {
			t.Errorf("fresh session state = %q, want %q", sess.State, StateCollectID)
		}
		if sess.UserID != 7 {
			t.Errorf("fresh session user = %d, want 7", sess.UserID)
		}
		return nil
	})
}
