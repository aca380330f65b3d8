// Package datasource persists candle history in DuckDB. The store is the
// single source of bar data for replays and for market data downloads.
package datasource

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/quantive-lab/pulse-trading/internal/logger"
	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// CandleStore is a DuckDB-backed bar store keyed by symbol and time.
type CandleStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewCandleStore opens (or creates) the DuckDB database at path. Use the
// empty string for an in-memory database.
func NewCandleStore(path string, log *logger.Logger) (*CandleStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "cannot open duckdb database at %q", path)
	}

	return &CandleStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize creates the candles table if it does not exist yet.
func (s *CandleStore) Initialize() error {
	s.logger.Debug("initializing candle store")

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol VARCHAR NOT NULL,
			time TIMESTAMP NOT NULL,
			open DOUBLE NOT NULL,
			high DOUBLE NOT NULL,
			low DOUBLE NOT NULL,
			close DOUBLE NOT NULL,
			volume DOUBLE NOT NULL,
			PRIMARY KEY (symbol, time)
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "cannot create candles table", err)
	}

	return nil
}

// InsertBars writes a batch of bars for the given symbol. Bars that collide
// with existing (symbol, time) rows are replaced.
func (s *CandleStore) InsertBars(symbol string, bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	builder := s.sq.
		Insert("candles").
		Columns("symbol", "time", "open", "high", "low", "close", "volume").
		Suffix("ON CONFLICT (symbol, time) DO UPDATE SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low, close = EXCLUDED.close, volume = EXCLUDED.volume")

	for _, bar := range bars {
		builder = builder.Values(symbol, bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "cannot build insert query", err)
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "cannot insert %d bars for %s", len(bars), symbol)
	}

	s.logger.Debug("inserted bars",
		zap.String("symbol", symbol),
		zap.Int("count", len(bars)))

	return nil
}

// Count returns the number of stored bars for the symbol.
func (s *CandleStore) Count(symbol string) (int, error) {
	query, args, err := s.sq.
		Select("COUNT(*)").
		From("candles").
		Where(squirrel.Eq{"symbol": symbol}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "cannot build count query", err)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "cannot count bars for %s", symbol)
	}

	return count, nil
}

// Window returns the most recent limit bars for the symbol in ascending
// time order. A non-positive limit returns the full history.
func (s *CandleStore) Window(symbol string, limit int) (types.PriceWindow, error) {
	builder := s.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("candles").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time DESC")

	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "cannot build window query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "cannot read window for %s", symbol)
	}
	defer rows.Close()

	var window types.PriceWindow

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "cannot scan bar row", err)
		}

		window = append(window, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "bar row iteration failed", err)
	}

	// Rows arrive newest-first; the engine wants ascending timestamps.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}

	return window, nil
}

// ReadAll streams every stored bar for the symbol in ascending time order.
// Iteration stops when yield returns false.
func (s *CandleStore) ReadAll(symbol string) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		query, args, err := s.sq.
			Select("time", "open", "high", "low", "close", "volume").
			From("candles").
			Where(squirrel.Eq{"symbol": symbol}).
			OrderBy("time ASC").
			ToSql()
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "cannot build read query", err))

			return
		}

		rows, err := s.db.Query(query, args...)
		if err != nil {
			yield(types.Bar{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "cannot read bars for %s", symbol))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var bar types.Bar
			if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
				yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "cannot scan bar row", err))

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "bar row iteration failed", err))
		}
	}
}

// Symbols returns the distinct symbols present in the store.
func (s *CandleStore) Symbols() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT symbol FROM candles ORDER BY symbol")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "cannot list symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "cannot scan symbol row", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "symbol row iteration failed", err)
	}

	return symbols, nil
}

// Close releases the underlying database handle.
func (s *CandleStore) Close() error {
	return s.db.Close()
}

// TimeRange returns the earliest and latest bar times stored for the symbol.
func (s *CandleStore) TimeRange(symbol string) (time.Time, time.Time, error) {
	query, args, err := s.sq.
		Select("MIN(time)", "MAX(time)").
		From("candles").
		Where(squirrel.Eq{"symbol": symbol}).
		ToSql()
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(errors.ErrCodeQueryFailed, "cannot build time range query", err)
	}

	var earliest, latest sql.NullTime
	if err := s.db.QueryRow(query, args...).Scan(&earliest, &latest); err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "cannot read time range for %s", symbol)
	}

	if !earliest.Valid || !latest.Valid {
		return time.Time{}, time.Time{}, errors.Newf(errors.ErrCodeDataNotFound, "no bars stored for %s", symbol)
	}

	return earliest.Time, latest.Time, nil
}
