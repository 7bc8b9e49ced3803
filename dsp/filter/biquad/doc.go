// Package biquad provides the second-order IIR section used by the
// equalizer filter nodes.
//
// A [Section] runs Direct Form II Transposed processing for one set of
// [Coefficients]. Coefficients can be swapped at any time while the delay
// line is kept, so parameter changes never reset the filter or click.
// Coefficient design lives in dsp/filter/design.
package biquad
