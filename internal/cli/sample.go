package cli

import (
	"pubquiz-service/internal/bank"
	"pubquiz-service/internal/domain"
)

// sampleQuestionSets seeds the question bank when no Postgres is configured.
// Twelve questions, so the set exercises the break after question ten.
func sampleQuestionSets() map[string]bank.QuestionSet {
	mc := func(prompt string, correct int, choices ...string) domain.Question {
		answer := domain.MCAnswer(correct)
		return domain.Question{Type: domain.QuestionMC, Prompt: prompt, Choices: choices, CorrectAnswer: &answer}
	}
	text := func(prompt, correct string) domain.Question {
		answer := domain.TextAnswer(correct)
		return domain.Question{Type: domain.QuestionText, Prompt: prompt, CorrectAnswer: &answer}
	}

	return map[string]bank.QuestionSet{
		"sample": {
			ID:    "sample",
			Title: "Friday Pub Quiz",
			Questions: []domain.Question{
				mc("What is the capital of Finland?", 0, "Helsinki", "Tampere", "Turku", "Oulu"),
				text("Name any prime number between 40 and 50.", "43"),
				mc("Which year did the first iPhone launch?", 1, "2005", "2007", "2009", "2010"),
				text("Who painted the Mona Lisa?", "Leonardo da Vinci"),
				mc("Which planet is known as the Red Planet?", 1, "Venus", "Mars", "Jupiter", "Mercury"),
				text("What is 12×12?", "144"),
				mc("Which language is primarily spoken in Brazil?", 1, "Spanish", "Portuguese", "French", "English"),
				text("What is the chemical symbol for Gold?", "Au"),
				mc("Which ocean is the largest?", 1, "Atlantic", "Pacific", "Indian", "Arctic"),
				text("How many minutes in 3 hours?", "180"),
				mc("Which city hosted the 2012 Summer Olympics?", 2, "Beijing", "Rio de Janeiro", "London", "Tokyo"),
				text("What is the square root of 169?", "13"),
			},
		},
	}
}
