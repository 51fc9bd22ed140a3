package inference

import (
	"errors"
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

func TestElements(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Elements(nil))
	assert.Equal(t, 150528, Elements([]int{1, 224, 224, 3}))
	assert.Equal(t, 705600, Elements([]int{1, 84, 8400}))
}

func TestThreadCount(t *testing.T) {
	t.Parallel()

	assert.Positive(t, threadCount(0))
	assert.LessOrEqual(t, threadCount(0), runtime.NumCPU())
	assert.Equal(t, 1, threadCount(1))
	assert.Equal(t, runtime.NumCPU(), threadCount(1<<20))
}

func TestFuncRunnerChecksInputLength(t *testing.T) {
	t.Parallel()

	r := &FuncRunner{
		In:  []int{1, 2, 2, 3},
		Out: []int{1, 2},
		Fn: func([]float32) ([]float32, error) {
			return []float32{0.1, 0.9}, nil
		},
	}

	_, err := r.Run(make([]float32, 5))
	require.Error(t, err)

	out, err := r.Run(make([]float32, 12))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.9}, out)
	assert.Equal(t, 2, r.Calls())

	shape := r.InputShape()
	shape[0] = 99
	assert.Equal(t, []int{1, 2, 2, 3}, r.InputShape(), "shape accessors return copies")

	require.NoError(t, r.Close())
	assert.True(t, r.Closed())
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open(Options{Backend: "coreml", Path: "model.mlpackage"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coreml")
}

func TestONNXRejectsBadShapesBeforeLoading(t *testing.T) {
	t.Parallel()

	_, err := NewONNX(ONNXConfig{Path: "missing.onnx", InputShape: []int{1, 0, 3}, OutputShape: []int{1, 10}})
	require.Error(t, err)

	_, err = NewONNX(ONNXConfig{Path: "missing.onnx", InputShape: []int{1, 3}, OutputShape: []int{1, 10}})
	require.Error(t, err, "a missing model file fails before the runtime is initialised")
}

func TestInstrumentRecordsRuns(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	mm, err := metrics.NewModelMetrics(reg)
	require.NoError(t, err)

	fail := false
	base := &FuncRunner{
		In:  []int{1},
		Out: []int{1},
		Fn: func(in []float32) ([]float32, error) {
			if fail {
				return nil, errors.New("invoke failed")
			}
			return in, nil
		},
	}
	r := Instrument(base, metrics.ModelClassifier, mm)

	_, err = r.Run([]float32{1})
	require.NoError(t, err)
	fail = true
	_, err = r.Run([]float32{1})
	require.Error(t, err)

	assert.Equal(t, 2, base.Calls())
	assert.Equal(t, []int{1}, r.OutputShape())
	assert.Equal(t, 1, testutil.CollectAndCount(mm, "dogbreed_model_inference_errors_total"))

	assert.Same(t, base, Instrument(base, metrics.ModelClassifier, nil))
}
