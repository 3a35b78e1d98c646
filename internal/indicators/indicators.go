package indicators

import (
	"math"

	"github.com/ajitpratap0/equityfunk/internal/market"
)

// Summary holds the latest indicator values for one ticker
type Summary struct {
	Price  float64 `json:"price"`
	RSI    float64 `json:"rsi"`
	SMA20  float64 `json:"sma_20"`
	SMA50  float64 `json:"sma_50"`
	SMA200 float64 `json:"sma_200"`
	ATR    float64 `json:"atr"`
	Trend  string  `json:"trend"` // "Bullish" or "Bearish"
}

// SMA returns the simple moving average of the last period closes,
// or 0 when there is not enough data
func SMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// RSI returns the Relative Strength Index over the last period deltas,
// using simple averages of gains and losses. Returns 0 when there is
// not enough data.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}

	var gain, loss float64
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}

	if loss == 0 {
		if gain == 0 {
			return 0
		}
		return 100
	}

	rs := gain / loss
	return 100 - 100/(1+rs)
}

// ATR returns the Average True Range over the last period bars, or 0
// when there is not enough data
func ATR(bars []market.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}

	sum := 0.0
	start := len(bars) - period
	for i := start; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := bars[i].High - bars[i].Low
		tr = math.Max(tr, math.Abs(bars[i].High-prevClose))
		tr = math.Max(tr, math.Abs(bars[i].Low-prevClose))
		sum += tr
	}
	return sum / float64(period)
}

// Summarize computes the latest indicator values from daily bars
func Summarize(bars []market.Bar) Summary {
	if len(bars) == 0 {
		return Summary{}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	price := closes[len(closes)-1]
	sma50 := SMA(closes, 50)

	trend := "Bearish"
	if price > sma50 {
		trend = "Bullish"
	}

	return Summary{
		Price:  round2(price),
		RSI:    round2(RSI(closes, 14)),
		SMA20:  round2(SMA(closes, 20)),
		SMA50:  round2(sma50),
		SMA200: round2(SMA(closes, 200)),
		ATR:    round2(ATR(bars, 14)),
		Trend:  trend,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
