package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"synthator-core/batch"
	"synthator-core/genome"
	"synthator/internal/scorer"
	"synthator/internal/transform"
)

type sliceSource struct {
	vs []genome.Variant
	i  int
}

func (s *sliceSource) Next() (genome.Variant, bool, error) {
	if s.i >= len(s.vs) {
		return genome.Variant{}, false, nil
	}
	v := s.vs[s.i]
	s.i++
	return v, true, nil
}

func variants(n int) []genome.Variant {
	vs := make([]genome.Variant, n)
	for i := range vs {
		vs[i] = genome.Variant{Chromosome: "1", Position: int64(1_000_000 + 200*i), ReferenceAllele: "A", AlternateAllele: "T"}
	}
	return vs
}

func newGen(t *testing.T, n, batchWindow int) *batch.Generator {
	t.Helper()
	g, err := batch.NewGenerator(&sliceSource{vs: variants(n)}, 1_000_000, batchWindow)
	require.NoError(t, err)
	return g
}

// stubScorer returns one track per variant, or a canned error.
type stubScorer struct {
	calls []int
	fail  map[int]error
}

func (s *stubScorer) ScoreBatch(_ context.Context, b batch.Batch) (*scorer.Result, error) {
	s.calls = append(s.calls, b.ID)
	if err := s.fail[b.ID]; err != nil {
		return nil, err
	}
	scores := map[string][]scorer.TrackScore{}
	for _, cv := range b.Items {
		scores[cv.Variant.ID()] = []scorer.TrackScore{{Name: "DNASE:K562:+", RawScore: 1}}
	}
	return &scorer.Result{BatchID: b.ID, Scores: scores}, nil
}

// memWriter records writes in memory.
type memWriter struct {
	files  map[int][]transform.Row
	failOn map[int]error
}

func newMemWriter() *memWriter { return &memWriter{files: map[int][]transform.Row{}} }

func (w *memWriter) Exists(id int) (bool, error) {
	_, ok := w.files[id]
	return ok, nil
}

func (w *memWriter) Write(id int, rows []transform.Row) (string, error) {
	if err := w.failOn[id]; err != nil {
		return "", err
	}
	w.files[id] = rows
	return "mem://batch", nil
}

func TestRunHappyPath(t *testing.T) {
	sc := &stubScorer{}
	w := newMemWriter()
	sum, err := Run(context.Background(), Config{}, newGen(t, 25, 10), sc, w, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, Summary{Batches: 3, Rows: 25}, sum)
	require.Equal(t, []int{0, 1, 2}, sc.calls)
	require.Len(t, w.files, 3)
}

func TestRunContinuesPastFailedBatch(t *testing.T) {
	sc := &stubScorer{fail: map[int]error{1: scorer.ErrUnavailable}}
	w := newMemWriter()
	sum, err := Run(context.Background(), Config{}, newGen(t, 25, 10), sc, w, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, sum.Batches)
	require.Equal(t, 1, sum.Failed)
	// Batches 0 and 2 still landed.
	require.Contains(t, w.files, 0)
	require.Contains(t, w.files, 2)
	require.NotContains(t, w.files, 1)
}

func TestRunContinuesPastWriteError(t *testing.T) {
	sc := &stubScorer{}
	w := newMemWriter()
	w.failOn = map[int]error{0: errors.New("disk full")}
	sum, err := Run(context.Background(), Config{}, newGen(t, 25, 10), sc, w, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, sum.Batches)
	require.Equal(t, 1, sum.Failed)
}

func TestRunResumeSkipsExisting(t *testing.T) {
	sc := &stubScorer{}
	w := newMemWriter()
	w.files[0] = nil // pre-existing output for batch 0

	sum, err := Run(context.Background(), Config{Resume: true}, newGen(t, 25, 10), sc, w, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Skipped)
	require.Equal(t, 2, sum.Batches)
	// Batch 0 was never scored.
	require.Equal(t, []int{1, 2}, sc.calls)
}

// Second run with resume performs zero scoring calls and leaves files as-is.
func TestRunResumeIdempotent(t *testing.T) {
	w := newMemWriter()

	sc1 := &stubScorer{}
	_, err := Run(context.Background(), Config{Resume: true}, newGen(t, 25, 10), sc1, w, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, sc1.calls, 3)
	first := map[int]int{}
	for id, rows := range w.files {
		first[id] = len(rows)
	}

	sc2 := &stubScorer{}
	sum, err := Run(context.Background(), Config{Resume: true}, newGen(t, 25, 10), sc2, w, zap.NewNop())
	require.NoError(t, err)
	require.Empty(t, sc2.calls)
	require.Equal(t, 3, sum.Skipped)
	for id, rows := range w.files {
		require.Equal(t, first[id], len(rows))
	}
}

func TestRunTestModeStopsAfterTwoBatches(t *testing.T) {
	sc := &stubScorer{}
	w := newMemWriter()
	sum, err := Run(context.Background(), Config{TestMode: true}, newGen(t, 50, 10), sc, w, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, sum.Batches)
	require.Equal(t, []int{0, 1}, sc.calls)
}

// Resume skips do not count toward the test-mode stop: with batches 0 and 1
// already on disk, a test-mode resume run still processes the next two.
func TestRunTestModeResumeCountsOnlyProcessed(t *testing.T) {
	sc := &stubScorer{}
	w := newMemWriter()
	w.files[0] = nil
	w.files[1] = nil

	sum, err := Run(context.Background(), Config{Resume: true, TestMode: true}, newGen(t, 50, 10), sc, w, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, sum.Skipped)
	require.Equal(t, 2, sum.Batches)
	require.Equal(t, []int{2, 3}, sc.calls)
}

func TestRunTransformErrorMarksFailed(t *testing.T) {
	// Scorer answers with a malformed track id for batch 0.
	sc := &badTrackScorer{}
	w := newMemWriter()
	sum, err := Run(context.Background(), Config{}, newGen(t, 5, 10), sc, w, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, Summary{Failed: 1}, sum)
	require.Empty(t, w.files)
}

type badTrackScorer struct{}

func (badTrackScorer) ScoreBatch(_ context.Context, b batch.Batch) (*scorer.Result, error) {
	scores := map[string][]scorer.TrackScore{}
	for _, cv := range b.Items {
		scores[cv.Variant.ID()] = []scorer.TrackScore{{Name: "DNASE"}}
	}
	return &scorer.Result{BatchID: b.ID, Scores: scores}, nil
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sc := &stubScorer{}
	_, err := Run(ctx, Config{}, newGen(t, 25, 10), sc, newMemWriter(), zap.NewNop())
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, sc.calls)
}

func TestRunEmptyInput(t *testing.T) {
	sum, err := Run(context.Background(), Config{}, newGen(t, 0, 10), &stubScorer{}, newMemWriter(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, Summary{}, sum)
}
