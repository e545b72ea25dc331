package indicator

import (
	"math"

	"github.com/dnldd/kumo/shared"
)

const (
	// ConversionPeriod is the conversion line (tenkan-sen) window.
	ConversionPeriod = 9
	// BasePeriod is the base line (kijun-sen) window.
	BasePeriod = 26
	// SpanPeriod is the leading span 2 (senkou span b) window.
	SpanPeriod = 52
	// Displacement is the number of candles leading spans are projected forward and the
	// high/low lookback distance.
	Displacement = 26
)

// IsMissing returns whether the provided indicator value is undefined.
func IsMissing(value float64) bool {
	return math.IsNaN(value)
}

// Defined returns whether all the provided indicator values are defined.
func Defined(values ...float64) bool {
	for _, v := range values {
		if IsMissing(v) {
			return false
		}
	}

	return true
}

// Frame represents the ichimoku indicator values derived from a candle sequence.
//
// Every series is aligned with the candle sequence it was calculated from. Undefined
// values are NaN.
type Frame struct {
	Conversion   []float64
	Base         []float64
	LeadingSpan1 []float64
	LeadingSpan2 []float64
	KumoHigh     []float64
	KumoLow      []float64
	High26       []float64
	Low26        []float64
}

// Point represents the indicator values at a single candle.
type Point struct {
	Conversion float64
	Base       float64
	KumoHigh   float64
	KumoLow    float64
	High26     float64
	Low26      float64
}

// Defined returns whether all values of the point are defined.
func (p Point) Defined() bool {
	return Defined(p.Conversion, p.Base, p.KumoHigh, p.KumoLow, p.High26, p.Low26)
}

// Len returns the number of candles covered by the frame.
func (f *Frame) Len() int {
	return len(f.Conversion)
}

// At returns the indicator values at the provided index, an out of range index returns a point
// of undefined values.
func (f *Frame) At(idx int) Point {
	if idx < 0 || idx >= f.Len() {
		nan := math.NaN()
		return Point{nan, nan, nan, nan, nan, nan}
	}

	return Point{
		Conversion: f.Conversion[idx],
		Base:       f.Base[idx],
		KumoHigh:   f.KumoHigh[idx],
		KumoLow:    f.KumoLow[idx],
		High26:     f.High26[idx],
		Low26:      f.Low26[idx],
	}
}

// midpoint returns the average of the highest high and lowest low over the window ending at the
// provided index.
func midpoint(candles []shared.Candlestick, idx int, window int) float64 {
	if idx < window-1 {
		return math.NaN()
	}

	high := candles[idx].High
	low := candles[idx].Low
	for i := idx - window + 1; i < idx; i++ {
		high = math.Max(high, candles[i].High)
		low = math.Min(low, candles[i].Low)
	}

	return (high + low) / 2
}

// shift returns the series value displaced back by the displacement.
func shift(series []float64, idx int) float64 {
	if idx < Displacement {
		return math.NaN()
	}

	return series[idx-Displacement]
}

// CalculateIchimoku derives the ichimoku frame of the provided candles.
func CalculateIchimoku(candles []shared.Candlestick) *Frame {
	n := len(candles)
	frame := &Frame{
		Conversion:   make([]float64, n),
		Base:         make([]float64, n),
		LeadingSpan1: make([]float64, n),
		LeadingSpan2: make([]float64, n),
		KumoHigh:     make([]float64, n),
		KumoLow:      make([]float64, n),
		High26:       make([]float64, n),
		Low26:        make([]float64, n),
	}

	rawSpan1 := make([]float64, n)
	rawSpan2 := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for idx := range candles {
		frame.Conversion[idx] = midpoint(candles, idx, ConversionPeriod)
		frame.Base[idx] = midpoint(candles, idx, BasePeriod)
		rawSpan1[idx] = (frame.Conversion[idx] + frame.Base[idx]) / 2
		rawSpan2[idx] = midpoint(candles, idx, SpanPeriod)
		highs[idx] = candles[idx].High
		lows[idx] = candles[idx].Low
	}

	for idx := range candles {
		span1 := shift(rawSpan1, idx)
		span2 := shift(rawSpan2, idx)
		frame.LeadingSpan1[idx] = span1
		frame.LeadingSpan2[idx] = span2

		// The cloud is undefined unless both spans are.
		if Defined(span1, span2) {
			frame.KumoHigh[idx] = math.Max(span1, span2)
			frame.KumoLow[idx] = math.Min(span1, span2)
		} else {
			frame.KumoHigh[idx] = math.NaN()
			frame.KumoLow[idx] = math.NaN()
		}

		frame.High26[idx] = shift(highs, idx)
		frame.Low26[idx] = shift(lows, idx)
	}

	return frame
}
