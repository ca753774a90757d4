package scoring

import (
	"strconv"
	"strings"

	"pubquiz-service/internal/domain"
)

// ScoresCSV renders the scoreboard in the export format: a header row of
// Player, Score, Q1..Qn, then one row per ranked player. Every cell is
// quoted, with embedded quotes doubled.
func ScoresCSV(quiz domain.Quiz, scores []PlayerScore) string {
	header := make([]string, 0, len(quiz.Questions)+2)
	header = append(header, "Player", "Score")
	for i := range quiz.Questions {
		header = append(header, "Q"+strconv.Itoa(i+1))
	}

	rows := make([][]string, 0, len(scores)+1)
	rows = append(rows, header)
	for _, score := range scores {
		row := make([]string, 0, len(header))
		row = append(row, score.Player.Name, strconv.Itoa(score.Score))
		for i := range quiz.Questions {
			row = append(row, exportCell(score.Answers, i))
		}
		rows = append(rows, row)
	}
	return toCSV(rows)
}

// exportCell writes the raw submitted value: the choice index for mc answers,
// the text for text answers, empty when the player never answered.
func exportCell(answers map[int]domain.AnswerValue, index int) string {
	value, ok := answers[index]
	if !ok {
		return ""
	}
	if value.Kind == domain.QuestionMC {
		return strconv.Itoa(value.Choice)
	}
	return value.Text
}

func toCSV(rows [][]string) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			b.WriteByte('"')
		}
	}
	return b.String()
}
