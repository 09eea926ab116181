package storage

import (
	"database/sql"
	"fmt"

	"market-sync/src/logger"
	"market-sync/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteQuoteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteQuoteStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteQuoteStore, error) {
	return &SQLiteQuoteStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (s *SQLiteQuoteStore) Initialize() error {
	dsn := s.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	s.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		s.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		s.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS latest_quotes (
			symbol TEXT PRIMARY KEY,
			price REAL,
			updated_at INTEGER
		);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create latest_quotes: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (s *SQLiteQuoteStore) SaveQuote(quote models.MQuote) error {
	query := `
		INSERT INTO latest_quotes (symbol, price, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			price = excluded.price,
			updated_at = excluded.updated_at
	`
	_, err := s.DB.Exec(query, quote.Symbol, quote.Price, quote.UpdatedAt.UnixMilli())
	return err
}

// -----------------------------------------------------------------------------

func (s *SQLiteQuoteStore) GetQuote(symbol string) (models.MQuote, error) {
	var quote models.MQuote
	var updatedAt int64

	row := s.DB.QueryRow("SELECT symbol, price, updated_at FROM latest_quotes WHERE symbol = ?", symbol)
	if err := row.Scan(&quote.Symbol, &quote.Price, &updatedAt); err != nil {
		return models.MQuote{}, err
	}

	quote.UpdatedAt = millisToTime(updatedAt)
	return quote, nil
}

// -----------------------------------------------------------------------------

func (s *SQLiteQuoteStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
