// Package marketdata downloads candle history from exchange APIs into a
// bar writer, typically the DuckDB candle store.
package marketdata

import (
	"context"
	"time"

	"github.com/polygon-io/client-go/rest/models"

	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// ProviderType identifies a market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
)

// OnDownloadProgress reports download progress. current and total are in
// provider-specific units (elapsed time or processed rows).
type OnDownloadProgress = func(current float64, total float64, message string)

// BarWriter receives downloaded bars in batches. *datasource.CandleStore
// satisfies it.
type BarWriter interface {
	Initialize() error
	InsertBars(symbol string, bars []types.Bar) error
}

// Provider downloads candle history for a ticker and date range.
type Provider interface {
	// ConfigWriter sets the destination for downloaded bars. It must be
	// called before Download.
	ConfigWriter(w BarWriter)
	// Download fetches the klines for the ticker between startDate and
	// endDate at the given resolution and writes them through the
	// configured writer. Cancel the context to abort.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) error
}

// NewProvider creates a market data provider by type. The Polygon provider
// requires an API key; Binance public kline data needs no credentials.
func NewProvider(providerType ProviderType, apiKey string) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceProvider(), nil
	case ProviderPolygon:
		return NewPolygonProvider(apiKey)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
