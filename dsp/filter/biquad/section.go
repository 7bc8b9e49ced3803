package biquad

// Coefficients of a normalized biquad (a0 == 1).
//
// Sign convention (Direct Form II Transposed):
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Identity returns coefficients that pass the input through unchanged.
func Identity() Coefficients {
	return Coefficients{B0: 1}
}

// IsIdentity reports whether c passes every input through unchanged.
// Besides the trivial B0=1 form this also matches the shape RBJ shelf and
// peaking designs collapse to at 0 dB gain, where numerator and denominator
// cancel (B1 == A1, B2 == A2).
func (c Coefficients) IsIdentity() bool {
	return c.B0 == 1 && c.B1 == c.A1 && c.B2 == c.A2
}

// Section is one biquad with its delay-line state.
type Section struct {
	Coefficients

	d0, d1 float64
}

// NewSection returns a section with zero state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// ProcessSample filters one sample.
func (s *Section) ProcessSample(x float64) float64 {
	if s.settledIdentity() {
		return x
	}

	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y

	return y
}

// ProcessBlock filters buf in place. Identity coefficients with a settled
// delay line leave buf untouched.
func (s *Section) ProcessBlock(buf []float64) {
	if s.settledIdentity() {
		return
	}

	b0, b1, b2 := s.B0, s.B1, s.B2
	a1, a2 := s.A1, s.A2
	d0, d1 := s.d0, s.d1

	for i, x := range buf {
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		buf[i] = y
	}

	s.d0, s.d1 = d0, d1
}

func (s *Section) settledIdentity() bool {
	return s.d0 == 0 && s.d1 == 0 && s.IsIdentity()
}

// SetCoefficients replaces the coefficients and keeps the delay line.
func (s *Section) SetCoefficients(c Coefficients) {
	s.Coefficients = c
}

// Reset clears the delay line.
func (s *Section) Reset() {
	s.d0, s.d1 = 0, 0
}

// State returns the delay line [d0, d1].
func (s *Section) State() [2]float64 {
	return [2]float64{s.d0, s.d1}
}

// SetState restores a delay line saved with State.
func (s *Section) SetState(state [2]float64) {
	s.d0, s.d1 = state[0], state[1]
}
