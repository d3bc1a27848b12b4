package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/lightning-rounds/internal/config"
	"github.com/gokatarajesh/lightning-rounds/internal/db"
	"github.com/gokatarajesh/lightning-rounds/internal/question/local"
	"github.com/gokatarajesh/lightning-rounds/internal/question/postgres"
)

func main() {
	var (
		file  = flag.String("file", "data/questions.json", "Question bank JSON file")
		batch = flag.Int("batch", postgres.DefaultSeedBatch, "Rows per insert batch")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	cfg, err := config.Load(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Postgres.URL == "" {
		log.Fatal().Msg("DATABASE_URL environment variable is required")
	}

	bank, err := local.ReadBank(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("failed to read question bank")
	}
	if len(bank) == 0 {
		log.Fatal().Str("file", *file).Msg("question bank is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Postgres.URL, db.PoolConfig{MaxConns: 2})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	var inserted int
	err = db.NewTransactor(pool).WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		n, err := postgres.ReplaceBank(ctx, tx, bank, *batch)
		inserted = n
		return err
	})
	if err != nil {
		log.Fatal().Err(err).Int("inserted", inserted).Msg("seeding failed; transaction rolled back")
	}

	count, err := postgres.CountQuestions(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to verify seeded rows")
	}

	log.Info().
		Str("file", *file).
		Int("inserted", inserted).
		Int("rows", count).
		Msg("question bank seeded")
}
