package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pubquiz-service/internal/domain"
)

// PostgresLoader loads question-set JSONB rows from Postgres.
type PostgresLoader struct {
	pool *pgxpool.Pool
}

func NewPostgresLoader(pool *pgxpool.Pool) *PostgresLoader {
	return &PostgresLoader{pool: pool}
}

func (l *PostgresLoader) LoadSet(ctx context.Context, id string) (QuestionSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return QuestionSet{}, domain.ErrSetNotFound
	}
	if err != nil {
		return QuestionSet{}, fmt.Errorf("load question set: %w", err)
	}
	var set QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return QuestionSet{}, fmt.Errorf("unmarshal question set: %w", err)
	}
	return set, nil
}
