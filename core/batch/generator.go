// core/batch/generator.go
package batch

import (
	"fmt"

	"synthator-core/genome"
)

// Batch is one unit of scoring work: a run of nearby variants scored in a
// single fixed-width context window they all share.
type Batch struct {
	ID            int
	Items         []genome.ContextualizedVariant
	MergedContext genome.Interval
}

// Variants returns the member variants in batch order.
func (b Batch) Variants() []genome.Variant {
	vs := make([]genome.Variant, len(b.Items))
	for i, cv := range b.Items {
		vs[i] = cv.Variant
	}
	return vs
}

// Source yields variants sorted ascending by (chromosome, position).
// The ordering is a precondition of the generator, not enforced here.
type Source interface {
	// Next returns the next variant, or ok=false at end of input.
	Next() (v genome.Variant, ok bool, err error)
}

// Generator groups a variant stream into Batches with a greedy single-pass
// packing: a variant joins the open batch while the union of the members'
// reference intervals still fits inside one ContextWindow-sized window and
// the member count stays below BatchWindow. The member-count limit is
// checked first, so when both limits would trip on the same variant the
// batch is closed on the size limit. When a batch closes, its scoring
// window is fixed: the joint span resized to exactly ContextWindow bp,
// shared by every member. Batch ids are assigned sequentially from 0 in
// emission order, so the grouping is deterministic for a given input and
// configuration.
//
// Memory is bounded by one open batch regardless of input size.
type Generator struct {
	src           Source
	contextWindow int64
	batchWindow   int

	nextID  int
	pending *genome.Variant // carried over from the last pull
	done    bool
}

// NewGenerator validates the configuration and returns a Generator.
func NewGenerator(src Source, contextWindow int64, batchWindow int) (*Generator, error) {
	if contextWindow <= 0 {
		return nil, fmt.Errorf("batch: context window must be > 0, got %d", contextWindow)
	}
	if batchWindow <= 0 {
		return nil, fmt.Errorf("batch: batch window must be > 0, got %d", batchWindow)
	}
	return &Generator{src: src, contextWindow: contextWindow, batchWindow: batchWindow}, nil
}

// Next produces the next batch. ok=false signals end of input.
func (g *Generator) Next() (Batch, bool, error) {
	if g.done {
		return Batch{}, false, nil
	}

	var members []genome.Variant
	var span genome.Interval
	if g.pending != nil {
		members, span = seed(*g.pending)
		g.pending = nil
	} else {
		v, ok, err := g.src.Next()
		if err != nil {
			return Batch{}, false, err
		}
		if !ok {
			g.done = true
			return Batch{}, false, nil
		}
		members, span = seed(v)
	}

	for {
		v, ok, err := g.src.Next()
		if err != nil {
			return Batch{}, false, err
		}
		if !ok {
			g.done = true
			return g.close(members, span), true, nil
		}

		// Size limit takes precedence over the window limit.
		if len(members) >= g.batchWindow {
			g.pending = &v
			return g.close(members, span), true, nil
		}
		union, err := span.Union(v.ReferenceInterval())
		if err != nil || union.Width() > g.contextWindow {
			// New chromosome, or the joint span no longer fits one window.
			g.pending = &v
			return g.close(members, span), true, nil
		}
		members = append(members, v)
		span = union
	}
}

// seed opens a batch with its first member.
func seed(v genome.Variant) ([]genome.Variant, genome.Interval) {
	return []genome.Variant{v}, v.ReferenceInterval()
}

// close fixes the batch's scoring window and assigns the next id. The span
// fits inside the window by construction, so the resized window covers
// every member's reference interval.
func (g *Generator) close(members []genome.Variant, span genome.Interval) Batch {
	merged := span.Resize(g.contextWindow)
	items := make([]genome.ContextualizedVariant, len(members))
	for i, v := range members {
		items[i] = genome.ContextualizedVariant{Variant: v, Context: merged}
	}
	b := Batch{ID: g.nextID, Items: items, MergedContext: merged}
	g.nextID++
	return b
}
