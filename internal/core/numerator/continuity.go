package numerator

import "strconv"

// Continuity is the outcome of a gapless check.
// Expected and Got are only meaningful when OK is false.
type Continuity struct {
	OK       bool
	Expected int64
	Got      int64
}

// CheckContinuity verifies that the french number candidate continues the
// user's series for year without a gap.
//
// When the user has no french invoice for year yet, any positive sequence is
// accepted, so a series started in another system can be continued and the
// first number of a year may jump.
func CheckContinuity(candidate string, existing []string, year int) Continuity {
	got, ok := ParseSequence(candidate, FormatFrench)
	if !ok {
		return Continuity{OK: false, Expected: 1, Got: 0}
	}

	seqs := Sequences(existing, YearPrefix(year), FormatFrench)
	if len(seqs) == 0 {
		if got < 1 {
			return Continuity{OK: false, Expected: 1, Got: got}
		}
		return Continuity{OK: true, Got: got}
	}

	var max int64
	for _, seq := range seqs {
		if seq > max {
			max = seq
		}
	}

	expected := max + 1
	if got != expected {
		return Continuity{OK: false, Expected: expected, Got: got}
	}
	return Continuity{OK: true, Expected: expected, Got: got}
}

// NumberYear returns the year embedded in a well-formed number of f.
func NumberYear(number string, f Format) (int, bool) {
	cfg, ok := configs[f]
	if !ok {
		return 0, false
	}
	m := cfg.pattern.FindStringSubmatch(number)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1][:4])
	if err != nil {
		return 0, false
	}
	return year, true
}

// IsGapless reports whether seqs, taken as a set, form a contiguous run.
func IsGapless(seqs []int64) bool {
	if len(seqs) < 2 {
		return true
	}
	seen := make(map[int64]struct{}, len(seqs))
	min, max := seqs[0], seqs[0]
	for _, s := range seqs {
		if _, dup := seen[s]; dup {
			return false
		}
		seen[s] = struct{}{}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return max-min+1 == int64(len(seqs))
}
