// core/genome/interval.go
package genome

import "fmt"

// Interval is a half-open, 0-based genomic range [Start, End).
type Interval struct {
	Chromosome string
	Start      int64
	End        int64
}

// NewInterval validates start < end and returns the interval.
func NewInterval(chrom string, start, end int64) (Interval, error) {
	if chrom == "" {
		return Interval{}, fmt.Errorf("interval: empty chromosome")
	}
	if start < 0 {
		return Interval{}, fmt.Errorf("interval %s: negative start %d", chrom, start)
	}
	if start >= end {
		return Interval{}, fmt.Errorf("interval %s: start %d must be < end %d", chrom, start, end)
	}
	return Interval{Chromosome: chrom, Start: start, End: end}, nil
}

// Width returns End-Start.
func (i Interval) Width() int64 { return i.End - i.Start }

// Contains reports whether pos lies in [Start, End).
func (i Interval) Contains(pos int64) bool { return pos >= i.Start && pos < i.End }

// Expand widens the interval by flank on both sides, clamping Start at 0.
func (i Interval) Expand(flank int64) Interval {
	start := i.Start - flank
	if start < 0 {
		start = 0
	}
	return Interval{Chromosome: i.Chromosome, Start: start, End: i.End + flank}
}

// Union returns the smallest interval covering both i and other.
// Both intervals must be on the same chromosome.
func (i Interval) Union(other Interval) (Interval, error) {
	if i.Chromosome != other.Chromosome {
		return Interval{}, fmt.Errorf("union: chromosome mismatch %s vs %s", i.Chromosome, other.Chromosome)
	}
	u := i
	if other.Start < u.Start {
		u.Start = other.Start
	}
	if other.End > u.End {
		u.End = other.End
	}
	return u, nil
}

// Resize recentres the interval to exactly width bp, keeping the original
// midpoint where possible. If the widened interval would cross the chromosome
// start it is shifted right so that Start is 0 and the width is preserved.
func (i Interval) Resize(width int64) Interval {
	mid := (i.Start + i.End) / 2
	start := mid - width/2
	if start < 0 {
		start = 0
	}
	return Interval{Chromosome: i.Chromosome, Start: start, End: start + width}
}

func (i Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", i.Chromosome, i.Start, i.End)
}
