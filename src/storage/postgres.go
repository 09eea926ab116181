package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-sync/src/logger"
	"market-sync/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// -----------------------------------------------------------------------------

type PostgresQuoteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresQuoteStore(cfg *models.MConfig, log *logger.Logger) (*PostgresQuoteStore, error) {
	return &PostgresQuoteStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (s *PostgresQuoteStore) Initialize() error {
	dsn := s.Config.Storage.DBConnectionString

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	s.DB = db

	query := `
		CREATE TABLE IF NOT EXISTS latest_quotes (
			symbol TEXT PRIMARY KEY,
			price DOUBLE PRECISION,
			updated_at BIGINT
		);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create latest_quotes: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (s *PostgresQuoteStore) SaveQuote(quote models.MQuote) error {
	query := `
		INSERT INTO latest_quotes (symbol, price, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET
			price = excluded.price,
			updated_at = excluded.updated_at
	`
	_, err := s.DB.Exec(query, quote.Symbol, quote.Price, quote.UpdatedAt.UnixMilli())
	return err
}

// -----------------------------------------------------------------------------

func (s *PostgresQuoteStore) GetQuote(symbol string) (models.MQuote, error) {
	var quote models.MQuote
	var updatedAt int64

	row := s.DB.QueryRow("SELECT symbol, price, updated_at FROM latest_quotes WHERE symbol = $1", symbol)
	if err := row.Scan(&quote.Symbol, &quote.Price, &updatedAt); err != nil {
		return models.MQuote{}, err
	}

	quote.UpdatedAt = millisToTime(updatedAt)
	return quote, nil
}

// -----------------------------------------------------------------------------

func (s *PostgresQuoteStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
