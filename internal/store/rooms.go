package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"pubquiz-service/internal/domain"
)

// Path layout under the document store.
func QuizPath(code string) string      { return "rooms/" + code + "/quiz" }
func AnswersRoot(code string) string   { return "rooms/" + code + "/answers" }
func AnswerKeyPath(code string) string { return "rooms/" + code + "/key" }

func AnswersPath(code string, qIndex int) string {
	return AnswersRoot(code) + "/" + strconv.Itoa(qIndex)
}

// RoomStore is the typed session-store adapter: domain-level reads, writes and
// subscriptions over the path-addressed document store.
type RoomStore struct {
	docs DocumentStore
}

func NewRoomStore(docs DocumentStore) *RoomStore {
	return &RoomStore{docs: docs}
}

// Quiz reads the session document for a room.
func (r *RoomStore) Quiz(ctx context.Context, code string) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := r.docs.Read(ctx, QuizPath(code), &quiz); err != nil {
		if errors.Is(err, domain.ErrPathNotFound) {
			return domain.Quiz{}, domain.ErrRoomNotFound
		}
		return domain.Quiz{}, fmt.Errorf("read quiz %s: %w", code, err)
	}
	return quiz, nil
}

// Exists reports whether a session document has been created for code.
func (r *RoomStore) Exists(ctx context.Context, code string) (bool, error) {
	_, err := r.Quiz(ctx, code)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// WriteQuiz replaces the whole session document.
func (r *RoomStore) WriteQuiz(ctx context.Context, code string, quiz domain.Quiz) error {
	return r.docs.Write(ctx, QuizPath(code), quiz)
}

// MergeQuiz applies a partial update to the session document in one call.
func (r *RoomStore) MergeQuiz(ctx context.Context, code string, fields map[string]any) error {
	return r.docs.Merge(ctx, QuizPath(code), fields)
}

// AppendAnswer records one submitted answer under answers/{qIndex}.
func (r *RoomStore) AppendAnswer(ctx context.Context, code string, qIndex int, entry domain.AnswerEntry) error {
	_, err := r.docs.Append(ctx, AnswersPath(code, qIndex), entry)
	return err
}

// Answers returns the entries for one question in submission order.
func (r *RoomStore) Answers(ctx context.Context, code string, qIndex int) ([]domain.AnswerEntry, error) {
	raw, err := r.docs.Elements(ctx, AnswersPath(code, qIndex))
	if err != nil {
		return nil, err
	}
	entries := make([]domain.AnswerEntry, 0, len(raw))
	for _, data := range raw {
		var entry domain.AnswerEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("decode answer entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AllAnswers returns every question's entries, keyed by question index.
func (r *RoomStore) AllAnswers(ctx context.Context, code string) (map[int][]domain.AnswerEntry, error) {
	children, err := r.docs.Children(ctx, AnswersRoot(code))
	if err != nil {
		return nil, err
	}
	sort.Strings(children)

	all := make(map[int][]domain.AnswerEntry, len(children))
	for _, child := range children {
		qIndex, err := strconv.Atoi(child)
		if err != nil {
			continue
		}
		entries, err := r.Answers(ctx, code, qIndex)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			all[qIndex] = entries
		}
	}
	return all, nil
}

// WriteAnswerKey stores the host-only answer key for the reveal variant.
func (r *RoomStore) WriteAnswerKey(ctx context.Context, code string, key domain.AnswerKey) error {
	return r.docs.Write(ctx, AnswerKeyPath(code), key)
}

// AnswerKey reads the host-only answer key; an absent key is empty, not an error.
func (r *RoomStore) AnswerKey(ctx context.Context, code string) (domain.AnswerKey, error) {
	var key domain.AnswerKey
	if err := r.docs.Read(ctx, AnswerKeyPath(code), &key); err != nil {
		if errors.Is(err, domain.ErrPathNotFound) {
			return domain.AnswerKey{}, nil
		}
		return nil, err
	}
	return key, nil
}

// SubscribeQuiz signals whenever the session document changes.
func (r *RoomStore) SubscribeQuiz(code string) (<-chan struct{}, func()) {
	return r.docs.Subscribe(QuizPath(code))
}

// SubscribeAnswers signals whenever any answer is appended for the room.
func (r *RoomStore) SubscribeAnswers(code string) (<-chan struct{}, func()) {
	return r.docs.Subscribe(AnswersRoot(code))
}

// ServerOffset passes the store's clock offset through as a feed for the
// clock synchronizer.
func (r *RoomStore) ServerOffset(ctx context.Context) (time.Duration, error) {
	return r.docs.ServerOffset(ctx)
}
