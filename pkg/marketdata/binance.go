package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// binancePageSize is the kline page limit of the Binance REST API.
const binancePageSize = 500

// BinanceProvider downloads klines from the Binance public REST API.
type BinanceProvider struct {
	client *binance.Client
	writer BarWriter
}

// NewBinanceProvider creates a Binance provider using public endpoints.
func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
		writer: nil,
	}
}

// ConfigWriter implements Provider.
func (p *BinanceProvider) ConfigWriter(w BarWriter) {
	p.writer = w
}

// Download implements Provider. Binance pages klines at 500 per request, so
// the range is walked page by page using the close time of the last kline
// as the next start.
func (p *BinanceProvider) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) error {
	if p.writer == nil {
		return errors.New(errors.ErrCodeInvalidConfiguration, "no writer configured, call ConfigWriter first")
	}

	interval, err := binanceInterval(timespan, multiplier)
	if err != nil {
		return err
	}

	if err := p.writer.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "cannot initialize bar writer", err)
	}

	startMillis := startDate.UnixMilli()
	endMillis := endDate.UnixMilli()
	currentStart := startMillis

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(ticker).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "cannot fetch %s klines from binance", ticker)
		}

		if onProgress != nil {
			onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis), "downloading "+ticker+" klines from binance")
		}

		bars, err := klinesToBars(klines)
		if err != nil {
			return err
		}

		if err := p.writer.InsertBars(ticker, bars); err != nil {
			return errors.Wrap(errors.ErrCodeWriteFailed, "cannot write downloaded bars", err)
		}

		if len(klines) < binancePageSize {
			return nil
		}

		// Next page starts just past the close of the last kline.
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			return nil
		}
	}
}

// klinesToBars converts Binance string-typed klines into typed bars.
func klinesToBars(klines []*binance.Kline) ([]types.Bar, error) {
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeParseFailed, err, "cannot parse open price %q", k.Open)
		}

		high, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeParseFailed, err, "cannot parse high price %q", k.High)
		}

		low, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeParseFailed, err, "cannot parse low price %q", k.Low)
		}

		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeParseFailed, err, "cannot parse close price %q", k.Close)
		}

		volume, err := strconv.ParseFloat(k.Volume, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeParseFailed, err, "cannot parse volume %q", k.Volume)
		}

		bars = append(bars, types.Bar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return bars, nil
}

// binanceInterval maps a timespan and multiplier onto a Binance interval
// string (1m, 5m, 1h, 1d, 1w, 1M, ...).
func binanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Minute:
		return strconv.Itoa(multiplier) + "m", nil
	case models.Hour:
		return strconv.Itoa(multiplier) + "h", nil
	case models.Day:
		return strconv.Itoa(multiplier) + "d", nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported weekly multiplier for binance: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported monthly multiplier for binance: %d", multiplier)
	default:
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported timespan for binance: %s", timespan)
	}
}
