// core/genome/variant.go
package genome

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant is a single normalized variant call. Position is 0-based.
// Chromosome uses Ensembl naming ("1".."22", "X", "Y", "MT").
type Variant struct {
	Chromosome      string
	Position        int64
	ReferenceAllele string
	AlternateAllele string
}

// ID returns the stable string id "chrom_pos_ref_alt" used across the
// variant index, scorer requests, and tidy output.
func (v Variant) ID() string {
	return fmt.Sprintf("%s_%d_%s_%s", v.Chromosome, v.Position, v.ReferenceAllele, v.AlternateAllele)
}

// ParseVariantID is the inverse of Variant.ID. Alleles may not contain '_'.
func ParseVariantID(id string) (Variant, error) {
	f := strings.Split(id, "_")
	if len(f) != 4 {
		return Variant{}, fmt.Errorf("variant id %q: want 4 '_'-separated fields, got %d", id, len(f))
	}
	for i, part := range f {
		if part == "" {
			return Variant{}, fmt.Errorf("variant id %q: empty field %d", id, i)
		}
	}
	pos, err := strconv.ParseInt(f[1], 10, 64)
	if err != nil {
		return Variant{}, fmt.Errorf("variant id %q: bad position: %v", id, err)
	}
	return Variant{Chromosome: f[0], Position: pos, ReferenceAllele: f[2], AlternateAllele: f[3]}, nil
}

// ReferenceInterval is the span covered by the reference allele.
func (v Variant) ReferenceInterval() Interval {
	end := v.Position + int64(len(v.ReferenceAllele))
	if end == v.Position {
		end++
	}
	return Interval{Chromosome: v.Chromosome, Start: v.Position, End: end}
}

// ContextualizedVariant pairs a variant with the fixed-width sequence
// context submitted to the scorer.
type ContextualizedVariant struct {
	Variant Variant
	Context Interval
}

// Contextualize derives the scoring context for a lone variant: the
// reference interval resized to exactly window bp with the variant
// approximately centered. Batched variants instead share one window derived
// the same way from their joint span.
func Contextualize(v Variant, window int64) ContextualizedVariant {
	return ContextualizedVariant{
		Variant: v,
		Context: v.ReferenceInterval().Resize(window),
	}
}
