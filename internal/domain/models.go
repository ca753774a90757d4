package domain

import "strconv"

// QuizState is the progression phase of a room.
type QuizState string

const (
	StateLobby    QuizState = "lobby"
	StateQuestion QuizState = "question"
	StateBreak    QuizState = "break"
	StateResults  QuizState = "results"
)

// QuestionType selects how an answer value is interpreted and compared.
type QuestionType string

const (
	QuestionMC   QuestionType = "mc"
	QuestionText QuestionType = "text"
)

// AnswerValue is a tagged variant: for mc questions Choice carries the selected
// option index, for text questions Text carries the typed answer. Kind always
// matches the owning question's type.
type AnswerValue struct {
	Kind   QuestionType `json:"kind"`
	Choice int          `json:"choice,omitempty"`
	Text   string       `json:"text,omitempty"`
}

// MCAnswer builds an mc answer value.
func MCAnswer(choice int) AnswerValue {
	return AnswerValue{Kind: QuestionMC, Choice: choice}
}

// TextAnswer builds a free-text answer value.
func TextAnswer(text string) AnswerValue {
	return AnswerValue{Kind: QuestionText, Text: text}
}

// Display renders the value the way result tables show it.
func (v AnswerValue) Display() string {
	if v.Kind == QuestionMC {
		return "Option " + string(rune('A'+v.Choice))
	}
	return v.Text
}

// Question is one quiz question. CorrectAnswer is the authoring-time key; in
// reveal mode it is stripped from the public document and kept in the host-only
// answer key instead.
type Question struct {
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Choices       []string     `json:"choices,omitempty"`
	CorrectAnswer *AnswerValue `json:"correctAnswer,omitempty"`
}

// Quiz is the shared session document, one per room code.
type Quiz struct {
	Title           string                 `json:"title"`
	Questions       []Question             `json:"questions"`
	CurrentIndex    int                    `json:"currentIndex"` // -1 means not started
	State           QuizState              `json:"state"`
	DefaultTimerSec int                    `json:"defaultTimerSec"`
	Accepting       bool                   `json:"accepting"`
	TimerEndsAt     int64                  `json:"timerEndsAt"` // ms since epoch, server-clock basis; 0 when no timer runs
	RevealedAnswers map[string]AnswerValue `json:"revealedAnswers,omitempty"`
	CreatedAt       int64                  `json:"createdAt"`
}

// QuestionKey is the RevealedAnswers / AnswerKey map key for a question index.
func QuestionKey(index int) string {
	return strconv.Itoa(index)
}

// Player is the ephemeral client-local identity embedded in answer entries.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AnswerEntry is one submitted answer, stored append-only under answers/{qIndex}.
// A player may have zero, one, or several entries for the same question.
type AnswerEntry struct {
	PlayerID    string      `json:"playerId"`
	PlayerName  string      `json:"playerName"`
	Answer      AnswerValue `json:"answer"`
	SubmittedAt int64       `json:"submittedAt"`
}

// AnswerKey is the host-only answer key used by the reveal variant.
// Keys are decimal question indices, matching Quiz.RevealedAnswers.
type AnswerKey map[string]AnswerValue
