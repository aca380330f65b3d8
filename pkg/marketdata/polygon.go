package marketdata

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// polygonBatchSize controls how many aggregates are buffered before they
// are flushed to the writer.
const polygonBatchSize = 1000

// PolygonProvider downloads aggregate bars from the Polygon REST API.
type PolygonProvider struct {
	client *polygon.Client
	writer BarWriter
}

// NewPolygonProvider creates a Polygon provider with the given API key.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires an API key")
	}

	return &PolygonProvider{
		client: polygon.New(apiKey),
		writer: nil,
	}, nil
}

// ConfigWriter implements Provider.
func (p *PolygonProvider) ConfigWriter(w BarWriter) {
	p.writer = w
}

// Download implements Provider.
func (p *PolygonProvider) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) error {
	if p.writer == nil {
		return errors.New(errors.ErrCodeInvalidConfiguration, "no writer configured, call ConfigWriter first")
	}

	if err := p.writer.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "cannot initialize bar writer", err)
	}

	totalDays := endDate.Sub(startDate).Hours() / 24

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	batch := make([]types.Bar, 0, polygonBatchSize)

	for iter.Next() {
		agg := iter.Item()
		batch = append(batch, types.Bar{
			Time:   time.Time(agg.Timestamp).UTC(),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})

		if len(batch) >= polygonBatchSize {
			if err := p.writer.InsertBars(ticker, batch); err != nil {
				return errors.Wrap(errors.ErrCodeWriteFailed, "cannot write downloaded bars", err)
			}

			if onProgress != nil {
				daysElapsed := time.Time(agg.Timestamp).Sub(startDate).Hours() / 24
				onProgress(daysElapsed, totalDays, "downloading "+ticker+" aggregates from polygon")
			}

			batch = batch[:0]
		}
	}

	if err := iter.Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "cannot fetch %s aggregates from polygon", ticker)
	}

	if err := p.writer.InsertBars(ticker, batch); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "cannot write downloaded bars", err)
	}

	if onProgress != nil {
		onProgress(totalDays, totalDays, "downloaded "+ticker+" aggregates from polygon")
	}

	return nil
}
