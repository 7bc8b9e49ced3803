// Package design computes biquad coefficients for the filter types the
// player's audio graph exposes.
//
// All designers follow the RBJ Audio EQ Cookbook and return normalized
// [biquad.Coefficients]. Shelving filters use a fixed shelf slope of 1,
// which is what browser BiquadFilterNode shelves do regardless of Q. Any
// out-of-range argument (frequency outside (0, Nyquist), non-finite gain or
// sample rate) yields [biquad.Identity] so a misconfigured band never mutes
// the signal.
package design

import (
	"math"

	"github.com/cwbudde/algo-player/dsp/filter/biquad"
)

// DefaultQ is the Butterworth quality factor.
const DefaultQ = 1 / math.Sqrt2

// LowShelf boosts or cuts everything below freq by gainDB.
func LowShelf(freq, gainDB, sampleRate float64) biquad.Coefficients {
	p, ok := newParams(freq, gainDB, DefaultQ, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	a, cw := p.a, p.cw
	beta := 2 * math.Sqrt(a) * p.alpha

	return normalize(
		a*((a+1)-(a-1)*cw+beta),
		2*a*((a-1)-(a+1)*cw),
		a*((a+1)-(a-1)*cw-beta),
		(a+1)+(a-1)*cw+beta,
		-2*((a-1)+(a+1)*cw),
		(a+1)+(a-1)*cw-beta,
	)
}

// HighShelf boosts or cuts everything above freq by gainDB.
func HighShelf(freq, gainDB, sampleRate float64) biquad.Coefficients {
	p, ok := newParams(freq, gainDB, DefaultQ, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	a, cw := p.a, p.cw
	beta := 2 * math.Sqrt(a) * p.alpha

	return normalize(
		a*((a+1)+(a-1)*cw+beta),
		-2*a*((a-1)+(a+1)*cw),
		a*((a+1)+(a-1)*cw-beta),
		(a+1)-(a-1)*cw+beta,
		2*((a-1)-(a+1)*cw),
		(a+1)-(a-1)*cw-beta,
	)
}

// Peak boosts or cuts a band centred on freq. Q <= 0 selects DefaultQ.
func Peak(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	p, ok := newParams(freq, gainDB, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return normalize(
		1+p.alpha*p.a,
		-2*p.cw,
		1-p.alpha*p.a,
		1+p.alpha/p.a,
		-2*p.cw,
		1-p.alpha/p.a,
	)
}

// Lowpass is a second-order lowpass at freq.
func Lowpass(freq, q, sampleRate float64) biquad.Coefficients {
	p, ok := newParams(freq, 0, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return normalize(
		(1-p.cw)/2,
		1-p.cw,
		(1-p.cw)/2,
		1+p.alpha,
		-2*p.cw,
		1-p.alpha,
	)
}

// Highpass is a second-order highpass at freq.
func Highpass(freq, q, sampleRate float64) biquad.Coefficients {
	p, ok := newParams(freq, 0, q, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	return normalize(
		(1+p.cw)/2,
		-(1 + p.cw),
		(1+p.cw)/2,
		1+p.alpha,
		-2*p.cw,
		1-p.alpha,
	)
}

// params are the cookbook intermediates shared by every design.
type params struct {
	a     float64 // amplitude, 10^(gain/40)
	cw    float64
	alpha float64
}

func newParams(freq, gainDB, q, sampleRate float64) (params, bool) {
	if !finite(sampleRate) || sampleRate <= 0 || !finite(freq) || !finite(gainDB) {
		return params{}, false
	}

	if freq <= 0 || freq >= sampleRate/2 {
		return params{}, false
	}

	if q <= 0 || !finite(q) {
		q = DefaultQ
	}

	w0 := 2 * math.Pi * freq / sampleRate

	return params{
		a:     math.Pow(10, gainDB/40),
		cw:    math.Cos(w0),
		alpha: math.Sin(w0) / (2 * q),
	}, true
}

func normalize(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	if a0 == 0 || !finite(a0) {
		return biquad.Identity()
	}

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
