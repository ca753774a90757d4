// Package bank stores prepared question sets hosts can load into a room by ID
// instead of pasting JSON.
package bank

import (
	"context"

	"pubquiz-service/internal/domain"
)

// QuestionSet is one named, reusable question list.
type QuestionSet struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Questions []domain.Question `json:"questions"`
}

// Loader fetches question sets from a backing store.
type Loader interface {
	LoadSet(ctx context.Context, id string) (QuestionSet, error)
}

// Repository serves question sets, typically caching in front of a Loader.
type Repository interface {
	GetSet(ctx context.Context, id string) (QuestionSet, error)
}

// StaticLoader is backed by a fixed in-memory map, for demos and tests.
type StaticLoader struct {
	sets map[string]QuestionSet
}

func NewStaticLoader(sets map[string]QuestionSet) *StaticLoader {
	return &StaticLoader{sets: sets}
}

func (l *StaticLoader) LoadSet(_ context.Context, id string) (QuestionSet, error) {
	if set, ok := l.sets[id]; ok {
		return set, nil
	}
	return QuestionSet{}, domain.ErrSetNotFound
}
