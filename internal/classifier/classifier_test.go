package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dogbreed-go/internal/imaging"
	"github.com/tphakala/dogbreed-go/internal/inference"
)

var testLabels = Labels{"n02085620-Chihuahua", "n02085782-Japanese_spaniel", "n02086240-Shih-Tzu"}

func scoresRunner(in []int, scores []float32, err error) *inference.FuncRunner {
	return &inference.FuncRunner{
		In:  in,
		Out: []int{1, len(scores)},
		Fn: func([]float32) ([]float32, error) {
			return scores, err
		},
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"n02085620-Chihuahua":               "Chihuahua",
		"n02085782-Japanese_spaniel":        "Japanese Spaniel",
		"n02086240-Shih-Tzu":                "Shih-Tzu",
		"n02089078-black-and-tan_coonhound": "Black-And-Tan Coonhound",
		"n02107908-Appenzeller":             "Appenzeller",
		"n02108000-EntleBucher":             "Entlebucher",
		"golden_retriever":                  "Golden Retriever",
	}
	for raw, want := range tests {
		assert.Equal(t, want, DisplayName(raw), raw)
	}
}

func TestParseLabels(t *testing.T) {
	t.Parallel()

	labels, err := ParseLabels([]byte(`{"1": "n02085782-Japanese_spaniel", "0": "n02085620-Chihuahua"}`))
	require.NoError(t, err)
	assert.Equal(t, Labels{"n02085620-Chihuahua", "n02085782-Japanese_spaniel"}, labels)

	labels, err = ParseLabels([]byte(`["a", "b", "c"]`))
	require.NoError(t, err)
	assert.Len(t, labels, 3)

	for _, bad := range []string{`{"0": "a", "2": "c"}`, `{"x": "a"}`, `{}`, `[]`, `"a"`, `{"0": ""}`} {
		_, err := ParseLabels([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestLoadLabelsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"0": "n02085620-Chihuahua"}`), 0o600))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, "Chihuahua", labels.Name(0))

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestBreeds(t *testing.T) {
	t.Parallel()

	breeds := testLabels.Breeds()
	require.Len(t, breeds, 3)
	assert.Equal(t, Breed{Label: 1, Name: "Japanese Spaniel", Raw: "n02085782-Japanese_spaniel"}, breeds[1])

	b, ok := testLabels.Breed(2)
	assert.True(t, ok)
	assert.Equal(t, "Shih-Tzu", b.Name)

	_, ok = testLabels.Breed(3)
	assert.False(t, ok)
	_, ok = testLabels.Breed(-1)
	assert.False(t, ok)
	assert.Equal(t, UnknownBreed, testLabels.Name(99))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	r := scoresRunner([]int{1, 4, 4, 3}, []float32{0.1, 0.7, 0.2}, nil)
	m, err := NewModel(r, testLabels, imaging.ScaleRaw)
	require.NoError(t, err)
	assert.Equal(t, imaging.NHWC, m.Spec().Layout)
	assert.Equal(t, 4, m.Spec().Width)

	scores, err := m.Classify(context.Background(), make([]float32, 48))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.7, 0.2}, scores)

	_, err = m.Classify(context.Background(), make([]float32, 10))
	require.Error(t, err)
	assert.Equal(t, 1, r.Calls())
}

func TestClassifyErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("invoke failed")
	m, err := NewModel(scoresRunner([]int{1, 3, 4, 4}, []float32{0, 0, 0}, boom), testLabels, imaging.ScaleImageNet)
	require.NoError(t, err)
	assert.Equal(t, imaging.NCHW, m.Spec().Layout)

	_, err = m.Classify(context.Background(), make([]float32, 48))
	require.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Classify(ctx, make([]float32, 48))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewModelChecksLabelCount(t *testing.T) {
	t.Parallel()

	_, err := NewModel(scoresRunner([]int{1, 4, 4, 3}, []float32{0.5, 0.5}, nil), testLabels, imaging.ScaleRaw)
	require.Error(t, err)

	_, err = NewModel(scoresRunner([]int{1, 4, 4, 3}, []float32{0.5, 0.5, 0}, nil), nil, imaging.ScaleRaw)
	require.Error(t, err)

	_, err = NewModel(scoresRunner([]int{4, 4, 3}, []float32{0.5, 0.5, 0}, nil), testLabels, imaging.ScaleRaw)
	require.Error(t, err)

	_, err = NewModel(nil, testLabels, imaging.ScaleRaw)
	require.Error(t, err)
}
