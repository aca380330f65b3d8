package datasource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quantive-lab/pulse-trading/internal/logger"
	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

type CandleStoreTestSuite struct {
	suite.Suite
	store *CandleStore
}

func TestCandleStoreSuite(t *testing.T) {
	suite.Run(t, new(CandleStoreTestSuite))
}

func (suite *CandleStoreTestSuite) SetupTest() {
	// Empty path opens an in-memory DuckDB database.
	store, err := NewCandleStore("", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(store.Initialize())

	suite.store = store
}

func (suite *CandleStoreTestSuite) TearDownTest() {
	suite.NoError(suite.store.Close())
}

func (suite *CandleStoreTestSuite) makeBars(n int) []types.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, n)

	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		bars = append(bars, types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + 0.5,
			Volume: float64(10 * (i + 1)),
		})
	}

	return bars
}

func (suite *CandleStoreTestSuite) TestInsertAndCount() {
	suite.NoError(suite.store.InsertBars("BTCUSDT", suite.makeBars(5)))

	count, err := suite.store.Count("BTCUSDT")
	suite.NoError(err)
	suite.Equal(5, count)

	count, err = suite.store.Count("ETHUSDT")
	suite.NoError(err)
	suite.Equal(0, count)
}

func (suite *CandleStoreTestSuite) TestInsertEmptyBatch() {
	suite.NoError(suite.store.InsertBars("BTCUSDT", nil))
}

func (suite *CandleStoreTestSuite) TestUpsertOnConflict() {
	bars := suite.makeBars(3)
	suite.NoError(suite.store.InsertBars("BTCUSDT", bars))

	bars[1].Close = 999
	suite.NoError(suite.store.InsertBars("BTCUSDT", bars))

	count, err := suite.store.Count("BTCUSDT")
	suite.NoError(err)
	suite.Equal(3, count)

	window, err := suite.store.Window("BTCUSDT", 0)
	suite.NoError(err)
	suite.Equal(999.0, window[1].Close)
}

func (suite *CandleStoreTestSuite) TestWindowAscendingWithLimit() {
	suite.NoError(suite.store.InsertBars("BTCUSDT", suite.makeBars(10)))

	window, err := suite.store.Window("BTCUSDT", 3)
	suite.NoError(err)
	suite.Len(window, 3)
	// The limit selects the newest bars, returned oldest-first.
	suite.NoError(window.Validate())
	suite.Equal(107.5, window[0].Close)
	suite.Equal(109.5, window[2].Close)
}

func (suite *CandleStoreTestSuite) TestWindowFullHistory() {
	suite.NoError(suite.store.InsertBars("BTCUSDT", suite.makeBars(10)))

	window, err := suite.store.Window("BTCUSDT", 0)
	suite.NoError(err)
	suite.Len(window, 10)
	suite.NoError(window.Validate())
}

func (suite *CandleStoreTestSuite) TestReadAll() {
	bars := suite.makeBars(4)
	suite.NoError(suite.store.InsertBars("BTCUSDT", bars))

	var read []types.Bar

	for bar, err := range suite.store.ReadAll("BTCUSDT") {
		suite.NoError(err)

		read = append(read, bar)
	}

	suite.Len(read, 4)
	suite.Equal(bars[0].Close, read[0].Close)
	suite.Equal(bars[3].Close, read[3].Close)
}

func (suite *CandleStoreTestSuite) TestReadAllEarlyStop() {
	suite.NoError(suite.store.InsertBars("BTCUSDT", suite.makeBars(10)))

	count := 0

	for _, err := range suite.store.ReadAll("BTCUSDT") {
		suite.NoError(err)

		count++
		if count == 2 {
			break
		}
	}

	suite.Equal(2, count)
}

func (suite *CandleStoreTestSuite) TestSymbols() {
	suite.NoError(suite.store.InsertBars("ETHUSDT", suite.makeBars(1)))
	suite.NoError(suite.store.InsertBars("BTCUSDT", suite.makeBars(1)))

	symbols, err := suite.store.Symbols()
	suite.NoError(err)
	suite.Equal([]string{"BTCUSDT", "ETHUSDT"}, symbols)
}

func (suite *CandleStoreTestSuite) TestTimeRange() {
	bars := suite.makeBars(5)
	suite.NoError(suite.store.InsertBars("BTCUSDT", bars))

	earliest, latest, err := suite.store.TimeRange("BTCUSDT")
	suite.NoError(err)
	suite.Equal(bars[0].Time, earliest.UTC())
	suite.Equal(bars[4].Time, latest.UTC())
}

func (suite *CandleStoreTestSuite) TestTimeRangeEmptySymbol() {
	_, _, err := suite.store.TimeRange("NOPE")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}
