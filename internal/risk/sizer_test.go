package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

type SizerTestSuite struct {
	suite.Suite
}

func TestSizerSuite(t *testing.T) {
	suite.Run(t, new(SizerTestSuite))
}

func (suite *SizerTestSuite) TestFixedFraction() {
	sizer, err := NewFixedFractionSizer(decimal.NewFromInt(10000), decimal.NewFromFloat(0.01))
	suite.NoError(err)

	// 10000 * 0.01 / 50 = 2
	volume, err := sizer.CalculatePositionSize(decimal.NewFromInt(50))
	suite.NoError(err)
	suite.True(decimal.NewFromInt(2).Equal(volume))
}

func (suite *SizerTestSuite) TestConstructorRejectsNegatives() {
	_, err := NewFixedFractionSizer(decimal.NewFromInt(-1), decimal.NewFromFloat(0.01))
	suite.Error(err)

	_, err = NewFixedFractionSizer(decimal.NewFromInt(100), decimal.NewFromFloat(-0.01))
	suite.Error(err)
}

func (suite *SizerTestSuite) TestZeroEntryPrice() {
	sizer, err := NewFixedFractionSizer(decimal.NewFromInt(100), decimal.NewFromFloat(0.01))
	suite.NoError(err)

	_, err = sizer.CalculatePositionSize(decimal.Zero)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSizingFailed))

	_, err = sizer.CalculatePositionSize(decimal.NewFromInt(-5))
	suite.Error(err)
}
