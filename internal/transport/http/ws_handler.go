package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pubquiz-service/internal/bank"
	"pubquiz-service/internal/clock"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/engine"
)

// tickInterval drives timer-view recomputation for connected clients.
const tickInterval = 250 * time.Millisecond

type WSHandler struct {
	engine   *engine.Engine
	bank     bank.Repository
	upgrader websocket.Upgrader
}

func NewWSHandler(eng *engine.Engine, sets bank.Repository) *WSHandler {
	return &WSHandler{
		engine: eng,
		bank:   sets,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type welcomePayload struct {
	Room       string        `json:"room"`
	Role       string        `json:"role"`
	RevealMode bool          `json:"revealMode"`
	Player     domain.Player `json:"player,omitempty"`
}

type timerPayload struct {
	SecsLeft int    `json:"secsLeft"`
	Display  string `json:"display"`
	TimedOut bool   `json:"timedOut"`
}

type advancePayload struct {
	Dir int `json:"dir"`
}

type secondsPayload struct {
	Seconds int `json:"seconds"`
}

type loadQuestionsPayload struct {
	Questions json.RawMessage `json:"questions"`
}

type loadBankPayload struct {
	SetID string `json:"setId"`
}

type answerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Choice        *int   `json:"choice,omitempty"`
	Text          string `json:"text,omitempty"`
}

type answerResultPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	Accepted      bool `json:"accepted"`
}

// answerView is what the host's answer stream shows per submission.
type answerView struct {
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	Display     string `json:"display"`
	SubmittedAt int64  `json:"submittedAt"`
}

func answerViews(entries []domain.AnswerEntry) []answerView {
	views := make([]answerView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, answerView{
			PlayerID:    entry.PlayerID,
			PlayerName:  entry.PlayerName,
			Display:     entry.Answer.Display(),
			SubmittedAt: entry.SubmittedAt,
		})
	}
	return views
}

// ServeWS upgrades the connection and wires it to the session: snapshot
// pushes on document changes, quarter-second timer frames, and role-gated
// inbound commands.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	role := r.URL.Query().Get("role")
	name := r.URL.Query().Get("name")
	if code == "" || (role != "host" && role != "player") {
		http.Error(w, "missing room or role", http.StatusBadRequest)
		return
	}
	if role == "player" && name == "" {
		http.Error(w, "missing player name", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := h.engine.Rooms().Quiz(ctx, code); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	player := domain.Player{}
	if role == "player" {
		player = domain.Player{ID: uuid.NewString(), Name: name}
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go h.pump(code, role, send, closeSignals, pumpDone)

	send <- outboundMessage[any]{Type: "welcome", Payload: welcomePayload{
		Room:       code,
		Role:       role,
		RevealMode: h.engine.RevealMode(),
		Player:     player,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleMessage(ctx, code, role, player, inbound, send)
	}

	close(closeSignals)
	<-pumpDone
	close(send)
	<-writerDone
}

// pump pushes quiz snapshots on store changes, answer streams to the host,
// and timer frames on a fixed tick.
func (h *WSHandler) pump(code, role string, send chan<- outboundMessage[any], closeSignals <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ctx := context.Background()

	quizCh, cancelQuiz := h.engine.Rooms().SubscribeQuiz(code)
	defer cancelQuiz()

	var answersCh <-chan struct{}
	if role == "host" {
		ch, cancelAnswers := h.engine.Rooms().SubscribeAnswers(code)
		defer cancelAnswers()
		answersCh = ch
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	quiz, err := h.engine.Rooms().Quiz(ctx, code)
	if err != nil {
		return
	}
	h.trySend(send, closeSignals, outboundMessage[any]{Type: "quiz", Payload: quiz})

	lastTimer := timerPayload{SecsLeft: -1}
	for {
		select {
		case <-closeSignals:
			return
		case _, ok := <-quizCh:
			if !ok {
				return
			}
			quiz, err = h.engine.Rooms().Quiz(ctx, code)
			if err != nil {
				continue
			}
			if !h.trySend(send, closeSignals, outboundMessage[any]{Type: "quiz", Payload: quiz}) {
				return
			}
		case _, ok := <-answersCh:
			if !ok {
				return
			}
			if quiz.CurrentIndex < 0 {
				continue
			}
			entries, err := h.engine.Rooms().Answers(ctx, code, quiz.CurrentIndex)
			if err != nil {
				continue
			}
			if !h.trySend(send, closeSignals, outboundMessage[any]{Type: "answers", Payload: answerViews(entries)}) {
				return
			}
		case <-ticker.C:
			if quiz.State != domain.StateQuestion {
				continue
			}
			sync := h.engine.Clock()
			frame := timerPayload{
				SecsLeft: sync.SecondsLeft(quiz.TimerEndsAt),
				TimedOut: sync.TimedOut(quiz.Accepting, quiz.TimerEndsAt),
			}
			frame.Display = clock.FormatSeconds(frame.SecsLeft)
			if frame == lastTimer {
				continue
			}
			lastTimer = frame
			if !h.trySend(send, closeSignals, outboundMessage[any]{Type: "timer", Payload: frame}) {
				return
			}
		}
	}
}

func (h *WSHandler) trySend(send chan<- outboundMessage[any], closeSignals <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-closeSignals:
		return false
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, code, role string, player domain.Player, inbound inboundMessage, send chan<- outboundMessage[any]) {
	fail := func(message string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
	}

	switch inbound.Type {
	case "answer":
		if role != "player" {
			fail("only players submit answers")
			return
		}
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid answer payload")
			return
		}
		value := domain.TextAnswer(payload.Text)
		if payload.Choice != nil {
			value = domain.MCAnswer(*payload.Choice)
		}
		accepted, err := h.engine.SubmitAnswer(ctx, code, payload.QuestionIndex, player, value)
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "answerResult", Payload: answerResultPayload{
			QuestionIndex: payload.QuestionIndex,
			Accepted:      accepted,
		}}

	case "advance":
		if !h.requireHost(role, fail) {
			return
		}
		var payload advancePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || (payload.Dir != engine.Forward && payload.Dir != engine.Backward) {
			fail("invalid advance payload")
			return
		}
		if err := h.engine.Advance(ctx, code, payload.Dir); err != nil {
			fail(err.Error())
		}

	case "setTimer":
		if !h.requireHost(role, fail) {
			return
		}
		var payload secondsPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Seconds <= 0 {
			fail("invalid setTimer payload")
			return
		}
		if err := h.engine.SetTimer(ctx, code, payload.Seconds); err != nil {
			fail(err.Error())
		}

	case "stopTimer":
		if !h.requireHost(role, fail) {
			return
		}
		if err := h.engine.StopTimer(ctx, code); err != nil {
			fail(err.Error())
		}

	case "setDefaultTimer":
		if !h.requireHost(role, fail) {
			return
		}
		var payload secondsPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid setDefaultTimer payload")
			return
		}
		if err := h.engine.SetDefaultTimer(ctx, code, payload.Seconds); err != nil {
			fail(err.Error())
		}

	case "loadQuestions":
		if !h.requireHost(role, fail) {
			return
		}
		var payload loadQuestionsPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid loadQuestions payload")
			return
		}
		if err := h.engine.LoadQuestions(ctx, code, payload.Questions); err != nil {
			fail(err.Error())
		}

	case "loadBank":
		if !h.requireHost(role, fail) {
			return
		}
		if h.bank == nil {
			fail("question bank not configured")
			return
		}
		var payload loadBankPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.SetID == "" {
			fail("invalid loadBank payload")
			return
		}
		set, err := h.bank.GetSet(ctx, payload.SetID)
		if err != nil {
			fail(err.Error())
			return
		}
		if err := h.engine.LoadParsedQuestions(ctx, code, set.Questions); err != nil {
			fail(err.Error())
		}

	case "scores":
		if !h.requireHost(role, fail) {
			return
		}
		scores, err := h.engine.Scores(ctx, code)
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "scores", Payload: scores}

	default:
		fail("unsupported message type")
	}
}

func (h *WSHandler) requireHost(role string, fail func(string)) bool {
	if role != "host" {
		fail("host-only command")
		return false
	}
	return true
}
