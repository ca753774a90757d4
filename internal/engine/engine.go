package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"pubquiz-service/internal/clock"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/scoring"
	"pubquiz-service/internal/store"
)

const (
	// ChunkSize is the number of questions between forced break screens.
	ChunkSize = 10

	// Allowed range for the per-question timer.
	MinTimerSec = 40
	MaxTimerSec = 60

	defaultTimerSec = 60
	defaultTitle    = "Pub Quiz"
)

// Direction of an Advance step.
const (
	Forward  = 1
	Backward = -1
)

// Engine is the authoritative driver of quiz progression. All session
// mutations funnel through it, serialized per room, so the shared document
// never sees two racing host transitions and the accepting-window check for
// submissions runs against the synchronized clock rather than a client's.
type Engine struct {
	rooms  *store.RoomStore
	clock  *clock.Synchronizer
	reveal bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	codes *codeGenerator
}

// New builds an engine. reveal selects the reveal-based scoring variant:
// answer keys are kept host-only and disclosed question by question as the
// host advances past them.
func New(rooms *store.RoomStore, syncer *clock.Synchronizer, reveal bool) *Engine {
	return &Engine{
		rooms:  rooms,
		clock:  syncer,
		reveal: reveal,
		locks:  make(map[string]*sync.Mutex),
		codes:  newCodeGenerator(),
	}
}

// Clock exposes the engine's synchronizer for derived timer views.
func (e *Engine) Clock() *clock.Synchronizer { return e.clock }

// Rooms exposes the typed store for read-only observers.
func (e *Engine) Rooms() *store.RoomStore { return e.rooms }

// RevealMode reports which scoring variant the engine runs.
func (e *Engine) RevealMode() bool { return e.reveal }

// CreateRoom creates a fresh session document in the lobby state and returns
// its room code.
func (e *Engine) CreateRoom(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}

	for attempt := 0; attempt < 5; attempt++ {
		code := e.codes.next()
		exists, err := e.rooms.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		quiz := domain.Quiz{
			Title:           title,
			Questions:       []domain.Question{},
			CurrentIndex:    -1,
			State:           domain.StateLobby,
			DefaultTimerSec: defaultTimerSec,
			Accepting:       false,
			TimerEndsAt:     0,
			CreatedAt:       e.clock.NowMillis(),
		}
		if err := e.rooms.WriteQuiz(ctx, code, quiz); err != nil {
			return "", err
		}
		return code, nil
	}
	return "", fmt.Errorf("could not allocate a free room code")
}

// LoadQuestions replaces the room's question list from a JSON payload and
// resets progression to the lobby. A malformed payload surfaces the parse
// error and leaves the store untouched. In reveal mode the public document
// gets sanitized questions and the answer key goes to the host-only path.
func (e *Engine) LoadQuestions(ctx context.Context, code string, payload []byte) error {
	questions, err := ParseQuestions(payload)
	if err != nil {
		return err
	}
	return e.LoadParsedQuestions(ctx, code, questions)
}

// LoadParsedQuestions installs an already-validated question list, e.g. one
// fetched from the question bank.
func (e *Engine) LoadParsedQuestions(ctx context.Context, code string, questions []domain.Question) error {
	unlock := e.lockRoom(code)
	defer unlock()

	if _, err := e.rooms.Quiz(ctx, code); err != nil {
		return err
	}

	public := questions
	if e.reveal {
		key := make(domain.AnswerKey, len(questions))
		public = make([]domain.Question, len(questions))
		for i, q := range questions {
			if q.CorrectAnswer != nil {
				key[domain.QuestionKey(i)] = *q.CorrectAnswer
			}
			q.CorrectAnswer = nil
			public[i] = q
		}
		if err := e.rooms.WriteAnswerKey(ctx, code, key); err != nil {
			return err
		}
	}

	return e.rooms.MergeQuiz(ctx, code, map[string]any{
		"questions":       public,
		"currentIndex":    -1,
		"state":           domain.StateLobby,
		"accepting":       false,
		"timerEndsAt":     int64(0),
		"revealedAnswers": map[string]domain.AnswerValue{},
	})
}

// Advance moves the session one step forward or backward through
// lobby → question → break → results.
func (e *Engine) Advance(ctx context.Context, code string, dir int) error {
	unlock := e.lockRoom(code)
	defer unlock()

	quiz, err := e.rooms.Quiz(ctx, code)
	if err != nil {
		return err
	}

	total := len(quiz.Questions)
	next := quiz.CurrentIndex + dir

	switch quiz.State {
	case domain.StateLobby:
		if total == 0 {
			return nil
		}
		// Any direction starts the quiz from the top.
		return e.startQuestion(ctx, code, quiz, 0)

	case domain.StateQuestion:
		if dir > 0 {
			if e.reveal {
				if err := e.revealOutgoing(ctx, code, quiz); err != nil {
					return err
				}
			}
			if next >= total {
				return e.rooms.MergeQuiz(ctx, code, map[string]any{
					"currentIndex": total - 1,
					"state":        domain.StateResults,
					"accepting":    false,
					"timerEndsAt":  int64(0),
				})
			}
			// Pause at every chunk boundary except past the last question.
			if next > 0 && next%ChunkSize == 0 && next < total {
				return e.enterBreak(ctx, code, next)
			}
			return e.startQuestion(ctx, code, quiz, next)
		}

		if next < 0 {
			return e.rooms.MergeQuiz(ctx, code, map[string]any{
				"currentIndex": -1,
				"state":        domain.StateLobby,
				"accepting":    false,
				"timerEndsAt":  int64(0),
			})
		}
		// Stepping back onto a chunk boundary shows the break screen,
		// not the question; the boundary test mirrors the forward one.
		if (next+1)%ChunkSize == 0 {
			return e.enterBreak(ctx, code, next)
		}
		return e.startQuestion(ctx, code, quiz, next)

	case domain.StateBreak:
		// The stored boundary index doubles as the next-question pointer.
		if dir > 0 {
			return e.startQuestion(ctx, code, quiz, quiz.CurrentIndex)
		}
		return e.startQuestion(ctx, code, quiz, quiz.CurrentIndex-1)

	case domain.StateResults:
		if dir < 0 {
			return e.startQuestion(ctx, code, quiz, total-1)
		}
		return nil
	}
	return nil
}

// startQuestion opens question i with a fresh accepting window.
func (e *Engine) startQuestion(ctx context.Context, code string, quiz domain.Quiz, i int) error {
	seconds := quiz.DefaultTimerSec
	if seconds == 0 {
		seconds = defaultTimerSec
	}
	return e.rooms.MergeQuiz(ctx, code, map[string]any{
		"currentIndex": i,
		"state":        domain.StateQuestion,
		"accepting":    true,
		"timerEndsAt":  e.clock.NowMillis() + int64(seconds)*1000,
	})
}

func (e *Engine) enterBreak(ctx context.Context, code string, index int) error {
	return e.rooms.MergeQuiz(ctx, code, map[string]any{
		"currentIndex": index,
		"state":        domain.StateBreak,
		"accepting":    false,
		"timerEndsAt":  int64(0),
	})
}

// revealOutgoing publishes the outgoing question's correct value, if the host
// key has one, before moving on. Already-revealed entries are kept as-is.
func (e *Engine) revealOutgoing(ctx context.Context, code string, quiz domain.Quiz) error {
	key, err := e.rooms.AnswerKey(ctx, code)
	if err != nil {
		return err
	}
	name := domain.QuestionKey(quiz.CurrentIndex)
	value, ok := key[name]
	if !ok {
		return nil
	}
	revealed := make(map[string]domain.AnswerValue, len(quiz.RevealedAnswers)+1)
	for k, v := range quiz.RevealedAnswers {
		revealed[k] = v
	}
	revealed[name] = value
	return e.rooms.MergeQuiz(ctx, code, map[string]any{"revealedAnswers": revealed})
}

// SetTimer restarts the current question's window without moving the index.
func (e *Engine) SetTimer(ctx context.Context, code string, seconds int) error {
	unlock := e.lockRoom(code)
	defer unlock()

	if _, err := e.rooms.Quiz(ctx, code); err != nil {
		return err
	}
	return e.rooms.MergeQuiz(ctx, code, map[string]any{
		"timerEndsAt": e.clock.NowMillis() + int64(seconds)*1000,
		"accepting":   true,
	})
}

// StopTimer closes the accepting window early. The timer value is left alone.
func (e *Engine) StopTimer(ctx context.Context, code string) error {
	unlock := e.lockRoom(code)
	defer unlock()

	if _, err := e.rooms.Quiz(ctx, code); err != nil {
		return err
	}
	return e.rooms.MergeQuiz(ctx, code, map[string]any{"accepting": false})
}

// SetDefaultTimer adjusts the per-question timer, clamped to the allowed range.
func (e *Engine) SetDefaultTimer(ctx context.Context, code string, seconds int) error {
	if seconds < MinTimerSec {
		seconds = MinTimerSec
	}
	if seconds > MaxTimerSec {
		seconds = MaxTimerSec
	}
	unlock := e.lockRoom(code)
	defer unlock()

	if _, err := e.rooms.Quiz(ctx, code); err != nil {
		return err
	}
	return e.rooms.MergeQuiz(ctx, code, map[string]any{"defaultTimerSec": seconds})
}

// SubmitAnswer appends a player submission if the accepting window is open on
// the authoritative clock. Late or off-question submissions are dropped
// silently; the returned bool reports whether the entry was recorded.
func (e *Engine) SubmitAnswer(ctx context.Context, code string, qIndex int, player domain.Player, value domain.AnswerValue) (bool, error) {
	quiz, err := e.rooms.Quiz(ctx, code)
	if err != nil {
		return false, err
	}
	if qIndex != quiz.CurrentIndex || !e.Accepting(quiz) {
		return false, nil
	}
	if qIndex < 0 || qIndex >= len(quiz.Questions) {
		return false, nil
	}
	if value.Kind != quiz.Questions[qIndex].Type {
		return false, nil
	}

	entry := domain.AnswerEntry{
		PlayerID:    player.ID,
		PlayerName:  strings.TrimSpace(player.Name),
		Answer:      value,
		SubmittedAt: e.clock.NowMillis(),
	}
	if err := e.rooms.AppendAnswer(ctx, code, qIndex, entry); err != nil {
		return false, err
	}
	return true, nil
}

// Accepting is the advisory window check derived views use: the host left the
// window open and the synchronized clock has not passed the deadline.
func (e *Engine) Accepting(quiz domain.Quiz) bool {
	return quiz.Accepting && e.clock.NowMillis() < quiz.TimerEndsAt
}

// Scores computes the ranked scoreboard for a room using the variant the
// engine was configured with.
func (e *Engine) Scores(ctx context.Context, code string) ([]scoring.PlayerScore, error) {
	quiz, err := e.rooms.Quiz(ctx, code)
	if err != nil {
		return nil, err
	}
	all, err := e.rooms.AllAnswers(ctx, code)
	if err != nil {
		return nil, err
	}
	var truth scoring.TruthProvider
	if e.reveal {
		truth = scoring.RevealedTruth(quiz)
	} else {
		truth = scoring.StaticTruth(quiz)
	}
	return scoring.ComputeScores(quiz, all, truth), nil
}

func (e *Engine) lockRoom(code string) func() {
	e.mu.Lock()
	lock, ok := e.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[code] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// ParseQuestions decodes the authoring JSON format: correctAnswer is a choice
// index for mc questions and a string for text questions.
func ParseQuestions(payload []byte) ([]domain.Question, error) {
	var wire []struct {
		Type          domain.QuestionType `json:"type"`
		Prompt        string              `json:"prompt"`
		Choices       []string            `json:"choices"`
		CorrectAnswer json.RawMessage     `json:"correctAnswer"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuestions, err)
	}

	questions := make([]domain.Question, 0, len(wire))
	for i, q := range wire {
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("%w: question %d has no prompt", domain.ErrInvalidQuestions, i)
		}
		question := domain.Question{Type: q.Type, Prompt: strings.TrimSpace(q.Prompt)}
		switch q.Type {
		case domain.QuestionMC:
			if len(q.Choices) < 2 {
				return nil, fmt.Errorf("%w: question %d needs at least two choices", domain.ErrInvalidQuestions, i)
			}
			question.Choices = q.Choices
			if len(q.CorrectAnswer) > 0 {
				var choice int
				if err := json.Unmarshal(q.CorrectAnswer, &choice); err != nil {
					return nil, fmt.Errorf("%w: question %d correctAnswer must be a choice index", domain.ErrInvalidQuestions, i)
				}
				if choice < 0 || choice >= len(q.Choices) {
					return nil, fmt.Errorf("%w: question %d correctAnswer out of range", domain.ErrInvalidQuestions, i)
				}
				answer := domain.MCAnswer(choice)
				question.CorrectAnswer = &answer
			}
		case domain.QuestionText:
			if len(q.CorrectAnswer) > 0 {
				var text string
				if err := json.Unmarshal(q.CorrectAnswer, &text); err != nil {
					return nil, fmt.Errorf("%w: question %d correctAnswer must be a string", domain.ErrInvalidQuestions, i)
				}
				answer := domain.TextAnswer(text)
				question.CorrectAnswer = &answer
			}
		default:
			return nil, fmt.Errorf("%w: question %d has unknown type %q", domain.ErrInvalidQuestions, i, q.Type)
		}
		questions = append(questions, question)
	}
	return questions, nil
}
