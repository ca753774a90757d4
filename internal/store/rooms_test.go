package store_test

import (
	"context"
	"errors"
	"testing"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/store"
	"pubquiz-service/internal/store/memory"
)

func newRoomStore() *store.RoomStore {
	return store.NewRoomStore(memory.NewStore())
}

func TestQuizMapsMissingPathToRoomNotFound(t *testing.T) {
	rooms := newRoomStore()
	if _, err := rooms.Quiz(context.Background(), "XXXXX"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	exists, err := rooms.Exists(context.Background(), "XXXXX")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("missing room reported as existing")
	}
}

func TestWriteAndMergeQuiz(t *testing.T) {
	rooms := newRoomStore()
	ctx := context.Background()

	quiz := domain.Quiz{Title: "Pub Quiz", CurrentIndex: -1, State: domain.StateLobby, DefaultTimerSec: 60}
	if err := rooms.WriteQuiz(ctx, "AB12C", quiz); err != nil {
		t.Fatalf("write quiz: %v", err)
	}

	if err := rooms.MergeQuiz(ctx, "AB12C", map[string]any{
		"currentIndex": 0,
		"state":        domain.StateQuestion,
		"accepting":    true,
	}); err != nil {
		t.Fatalf("merge quiz: %v", err)
	}

	got, err := rooms.Quiz(ctx, "AB12C")
	if err != nil {
		t.Fatalf("read quiz: %v", err)
	}
	if got.Title != "Pub Quiz" {
		t.Fatalf("merge lost the title: %q", got.Title)
	}
	if got.CurrentIndex != 0 || got.State != domain.StateQuestion || !got.Accepting {
		t.Fatalf("merge did not apply: %+v", got)
	}
}

func TestAnswersRoundTrip(t *testing.T) {
	rooms := newRoomStore()
	ctx := context.Background()

	entries := []domain.AnswerEntry{
		{PlayerID: "p1", PlayerName: "Alice", Answer: domain.MCAnswer(1), SubmittedAt: 1000},
		{PlayerID: "p2", PlayerName: "Bob", Answer: domain.TextAnswer("Paris"), SubmittedAt: 2000},
	}
	for _, entry := range entries {
		if err := rooms.AppendAnswer(ctx, "AB12C", 0, entry); err != nil {
			t.Fatalf("append answer: %v", err)
		}
	}
	if err := rooms.AppendAnswer(ctx, "AB12C", 3, entries[0]); err != nil {
		t.Fatalf("append answer: %v", err)
	}

	got, err := rooms.Answers(ctx, "AB12C", 0)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(got) != 2 || got[0].PlayerName != "Alice" || got[1].Answer.Text != "Paris" {
		t.Fatalf("unexpected entries: %+v", got)
	}

	all, err := rooms.AllAnswers(ctx, "AB12C")
	if err != nil {
		t.Fatalf("all answers: %v", err)
	}
	if len(all) != 2 || len(all[0]) != 2 || len(all[3]) != 1 {
		t.Fatalf("unexpected answer map: %+v", all)
	}
}

func TestAnswerKeyAbsentIsEmpty(t *testing.T) {
	rooms := newRoomStore()
	ctx := context.Background()

	key, err := rooms.AnswerKey(ctx, "AB12C")
	if err != nil {
		t.Fatalf("answer key: %v", err)
	}
	if len(key) != 0 {
		t.Fatalf("expected empty key, got %+v", key)
	}

	want := domain.AnswerKey{domain.QuestionKey(0): domain.MCAnswer(2)}
	if err := rooms.WriteAnswerKey(ctx, "AB12C", want); err != nil {
		t.Fatalf("write answer key: %v", err)
	}
	key, err = rooms.AnswerKey(ctx, "AB12C")
	if err != nil {
		t.Fatalf("answer key: %v", err)
	}
	if got := key[domain.QuestionKey(0)]; got.Choice != 2 {
		t.Fatalf("unexpected key: %+v", key)
	}
}

func TestSubscriptionsAreScopedPerRoom(t *testing.T) {
	rooms := newRoomStore()
	ctx := context.Background()

	if err := rooms.WriteQuiz(ctx, "AB12C", domain.Quiz{State: domain.StateLobby}); err != nil {
		t.Fatalf("write quiz: %v", err)
	}

	ch, cancel := rooms.SubscribeQuiz("AB12C")
	defer cancel()
	otherCh, cancelOther := rooms.SubscribeQuiz("ZZ99Z")
	defer cancelOther()

	if err := rooms.MergeQuiz(ctx, "AB12C", map[string]any{"state": domain.StateQuestion}); err != nil {
		t.Fatalf("merge quiz: %v", err)
	}

	select {
	case <-ch:
	default:
		t.Fatalf("expected a signal after merge")
	}
	select {
	case <-otherCh:
		t.Fatalf("other room's subscriber signalled")
	default:
	}
}
