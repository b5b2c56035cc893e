package indicators_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arena/pkg/indicators"
	"arena/pkg/market"
)

func candlesFromCloses(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Time:   time.Unix(int64(i)*60, 0),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10 + float64(i),
		}
	}
	return out
}

func TestComputeFromCandles_EmptySeriesReturnsDefaults(t *testing.T) {
	scalars, tails := indicators.ComputeFromCandles(nil)
	assert.Equal(t, 50.0, scalars.RSI14)
	assert.Equal(t, 50.0, scalars.RSI7)
	assert.Equal(t, 0.0, scalars.MACD)
	assert.Empty(t, tails.EMA20)
}

func TestComputeFromCandles_InsufficientHistoryUsesDocumentedDefaults(t *testing.T) {
	candles := candlesFromCloses([]float64{100, 101, 99, 102})
	scalars, _ := indicators.ComputeFromCandles(candles)
	assert.Equal(t, candles[len(candles)-1].Close, scalars.EMA20, "EMA20 falls back to last close pre-warm")
	assert.Equal(t, 50.0, scalars.RSI14)
	assert.Equal(t, 0.0, scalars.MACD)
}

func TestComputeFromCandles_TailLengthCapsAt20(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.1
	}
	_, tails := indicators.ComputeFromCandles(candlesFromCloses(closes))
	assert.Len(t, tails.EMA20, 20)
}

func TestComputeFromCandles_TailShorterThan20WhenUnavailable(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	_, tails := indicators.ComputeFromCandles(candlesFromCloses(closes))
	assert.Len(t, tails.EMA20, 10)
}

func TestComputeFromCandles_RSIBoundedZeroToHundred(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i) // strictly increasing: all gains
	}
	scalars, _ := indicators.ComputeFromCandles(candlesFromCloses(closes))
	assert.Equal(t, 100.0, scalars.RSI14, "all-gain series has zero avg loss -> RSI 100")
}

func TestComputeFromCandles_VolumeIsLastBar(t *testing.T) {
	candles := candlesFromCloses([]float64{100, 101, 102})
	scalars, _ := indicators.ComputeFromCandles(candles)
	assert.Equal(t, candles[len(candles)-1].Volume, scalars.Volume)
}
