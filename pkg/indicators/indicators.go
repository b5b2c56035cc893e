// Package indicators computes the IndicatorPipeline: a pure function from a
// candle series to latest-value scalars and their truncated tail series. It
// performs no I/O and never errors; an empty Series yields documented
// defaults.
package indicators

import (
	"math"

	"arena/pkg/market"
)

const tailLength = 20

// ComputeFromCandles derives indicator scalars and tail series from a
// candle series, oldest-to-newest. EMA(n): ema[0] = SMA(first n), then
// exponentially smoothed with alpha = 2/(n+1); RSI(n): Wilder-style
// smoothed average gain/loss; MACD: EMA(12)-EMA(26), signal = EMA(9) of
// that, returned series is the histogram macd-signal. Positions before a
// period is warm are padded: EMA with the raw close price, MACD with zero.
func ComputeFromCandles(candles []market.Candle) (market.IndicatorSet, market.IndicatorTails) {
	if len(candles) == 0 {
		return market.IndicatorSet{EMA20: 0, RSI14: 50.0, RSI7: 50.0, MACD: 0, Volume: 0},
			market.IndicatorTails{EMA20: []float64{}, RSI14: []float64{}, RSI7: []float64{}, MACD: []float64{}}
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	lastClose := closes[len(closes)-1]
	lastVolume := candles[len(candles)-1].Volume

	ema20 := padEMA(ema(closes, 20), closes)
	rsi14 := padRSI(rsi(closes, 14))
	rsi7 := padRSI(rsi(closes, 7))
	macdHist := padZero(macdHistogram(closes))

	scalars := market.IndicatorSet{
		EMA20:  lastOrDefault(ema20, lastClose),
		RSI14:  lastOrDefault(rsi14, 50.0),
		RSI7:   lastOrDefault(rsi7, 50.0),
		MACD:   lastOrDefault(macdHist, 0),
		Volume: lastVolume,
	}
	tails := market.IndicatorTails{
		EMA20: tail(ema20),
		RSI14: tail(rsi14),
		RSI7:  tail(rsi7),
		MACD:  tail(macdHist),
	}
	return scalars, tails
}

func lastOrDefault(series []float64, def float64) float64 {
	if len(series) == 0 {
		return def
	}
	v := series[len(series)-1]
	if math.IsNaN(v) {
		return def
	}
	return v
}

func tail(series []float64) []float64 {
	if len(series) <= tailLength {
		out := make([]float64, len(series))
		copy(out, series)
		return out
	}
	out := make([]float64, tailLength)
	copy(out, series[len(series)-tailLength:])
	return out
}

// padEMA replaces pre-warm NaN positions with the raw close price so the
// presented series stays index-aligned with the input prices.
func padEMA(series, closes []float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			out[i] = closes[i]
		} else {
			out[i] = v
		}
	}
	return out
}

func padZero(series []float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			out[i] = 0
		} else {
			out[i] = v
		}
	}
	return out
}

func padRSI(series []float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			out[i] = 50.0
		} else {
			out[i] = v
		}
	}
	return out
}

// ema produces the exponential moving average for prices; entries before
// the series is warm are math.NaN.
func ema(prices []float64, period int) []float64 {
	result := make([]float64, len(prices))
	for i := range result {
		result[i] = math.NaN()
	}
	if period <= 0 || len(prices) < period {
		return result
	}
	multiplier := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	seed := sum / float64(period)
	result[period-1] = seed

	for i := period; i < len(prices); i++ {
		result[i] = (prices[i]-result[i-1])*multiplier + result[i-1]
	}
	return result
}

// rsi computes Wilder-style RSI; entries before the series is warm are
// math.NaN. RSI is 100 when the average loss is zero.
func rsi(prices []float64, period int) []float64 {
	result := make([]float64, len(prices))
	for i := range result {
		result[i] = math.NaN()
	}
	if period <= 0 || len(prices) <= period {
		return result
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	result[period] = computeRSI(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		result[i] = computeRSI(avgGain, avgLoss)
	}
	return result
}

func computeRSI(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50.0
	case avgLoss == 0:
		return 100.0
	case avgGain == 0:
		return 0.0
	default:
		rs := avgGain / avgLoss
		return 100.0 - (100.0 / (1.0 + rs))
	}
}

// macdHistogram returns EMA(12)-EMA(26) minus its own EMA(9) signal line.
func macdHistogram(prices []float64) []float64 {
	ema12 := ema(prices, 12)
	ema26 := ema(prices, 26)

	macd := make([]float64, len(prices))
	for i := range prices {
		if math.IsNaN(ema12[i]) || math.IsNaN(ema26[i]) {
			macd[i] = math.NaN()
		} else {
			macd[i] = ema12[i] - ema26[i]
		}
	}

	signal := emaAllowNaNSeed(macd, 9)
	hist := make([]float64, len(prices))
	for i := range hist {
		if math.IsNaN(macd[i]) || math.IsNaN(signal[i]) {
			hist[i] = math.NaN()
		} else {
			hist[i] = macd[i] - signal[i]
		}
	}
	return hist
}

// emaAllowNaNSeed seeds the EMA from the first window whose entries are all
// non-NaN, rather than requiring the very first `period` prices to be warm;
// used for the MACD signal line, which itself starts life as a NaN-padded
// series.
func emaAllowNaNSeed(prices []float64, period int) []float64 {
	result := make([]float64, len(prices))
	for i := range result {
		result[i] = math.NaN()
	}
	if period <= 0 || len(prices) < period {
		return result
	}
	multiplier := 2.0 / float64(period+1)

	start := -1
	var seed float64
	for i := period - 1; i < len(prices); i++ {
		valid := true
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(prices[j]) {
				valid = false
				break
			}
			sum += prices[j]
		}
		if valid {
			start = i
			seed = sum / float64(period)
			break
		}
	}
	if start == -1 {
		return result
	}
	result[start] = seed

	for i := start + 1; i < len(prices); i++ {
		if math.IsNaN(prices[i]) {
			result[i] = result[i-1]
			continue
		}
		prev := result[i-1]
		if math.IsNaN(prev) {
			prev = seed
		}
		result[i] = (prices[i]-prev)*multiplier + prev
	}
	return result
}
