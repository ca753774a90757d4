package scoring

import (
	"sort"
	"strings"

	"pubquiz-service/internal/domain"
)

// PlayerScore is one ranked scoreboard row. Answers holds the last submitted
// value per question for display and export.
type PlayerScore struct {
	Player  domain.Player              `json:"player"`
	Score   int                        `json:"score"`
	Answers map[int]domain.AnswerValue `json:"answers"`
}

// TruthProvider resolves the ground-truth value for a question index. The
// static and reveal variants are two providers behind this one interface: a
// question contributes to scoring only while its provider returns a value.
type TruthProvider func(index int) (domain.AnswerValue, bool)

// StaticTruth scores directly against the authoring-time answer keys.
func StaticTruth(quiz domain.Quiz) TruthProvider {
	return func(index int) (domain.AnswerValue, bool) {
		if index < 0 || index >= len(quiz.Questions) {
			return domain.AnswerValue{}, false
		}
		key := quiz.Questions[index].CorrectAnswer
		if key == nil {
			return domain.AnswerValue{}, false
		}
		return *key, true
	}
}

// RevealedTruth scores only questions the host has revealed so far.
func RevealedTruth(quiz domain.Quiz) TruthProvider {
	return func(index int) (domain.AnswerValue, bool) {
		value, ok := quiz.RevealedAnswers[domain.QuestionKey(index)]
		return value, ok
	}
}

// Matches applies the comparison policy: exact choice index for mc, trimmed
// case-insensitive equality for text.
func Matches(submitted, truth domain.AnswerValue) bool {
	if submitted.Kind != truth.Kind {
		return false
	}
	switch truth.Kind {
	case domain.QuestionMC:
		return submitted.Choice == truth.Choice
	case domain.QuestionText:
		return normalize(submitted.Text) == normalize(truth.Text)
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ComputeScores builds the ranked scoreboard from accumulated answers.
// Players are keyed by (id, name); every matching entry adds a point, so a
// player with several correct entries for one question earns several points
// (preserved source behavior, see the duplicate-submissions test). Ranking is
// descending by score with ties kept in encounter order.
func ComputeScores(quiz domain.Quiz, all map[int][]domain.AnswerEntry, truth TruthProvider) []PlayerScore {
	indices := make([]int, 0, len(all))
	for index := range all {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	byKey := make(map[string]*PlayerScore)
	var order []string

	for _, index := range indices {
		truthValue, hasTruth := truth(index)
		for _, entry := range all[index] {
			key := entry.PlayerID + "::" + entry.PlayerName
			row, ok := byKey[key]
			if !ok {
				row = &PlayerScore{
					Player:  domain.Player{ID: entry.PlayerID, Name: entry.PlayerName},
					Answers: make(map[int]domain.AnswerValue),
				}
				byKey[key] = row
				order = append(order, key)
			}
			row.Answers[index] = entry.Answer
			if hasTruth && Matches(entry.Answer, truthValue) {
				row.Score++
			}
		}
	}

	scores := make([]PlayerScore, 0, len(order))
	for _, key := range order {
		scores = append(scores, *byKey[key])
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}
