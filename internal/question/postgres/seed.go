package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
)

// DefaultSeedBatch is the number of rows inserted per round trip.
const DefaultSeedBatch = 100

const insertQuestion = `INSERT INTO questions (id, category, subcategory, question, answer, asked)
VALUES ($1, $2, $3, $4, $5, FALSE)`

const syncSequence = `SELECT setval(pg_get_serial_sequence('questions', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM questions`

// ReplaceBank deletes every question and inserts bank in batches, keeping
// the ids from the bank file. Run it inside a transaction.
func ReplaceBank(ctx context.Context, tx pgx.Tx, bank []question.Question, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultSeedBatch
	}

	if _, err := tx.Exec(ctx, `DELETE FROM questions`); err != nil {
		return 0, fmt.Errorf("clear questions: %w", err)
	}

	inserted := 0
	for start := 0; start < len(bank); start += batchSize {
		end := min(start+batchSize, len(bank))

		batch := &pgx.Batch{}
		for _, q := range bank[start:end] {
			batch.Queue(insertQuestion, q.ID, q.Category, q.Subcategory, q.Question, q.Answer)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return inserted, fmt.Errorf("insert batch %d: %w", start/batchSize+1, err)
		}
		inserted += end - start
	}

	if _, err := tx.Exec(ctx, syncSequence); err != nil {
		return inserted, fmt.Errorf("sync id sequence: %w", err)
	}
	return inserted, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CountQuestions reports the number of rows in the questions table.
func CountQuestions(ctx context.Context, db rowQuerier) (int, error) {
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}
