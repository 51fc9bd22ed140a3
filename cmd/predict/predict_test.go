package predict

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dogbreed-go/internal/classifier"
)

func TestRunKeepsOrderAndLimitsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	predict := func(_ context.Context, url string) (int, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if url == "bad" {
			return 0, errors.New("fetch failed")
		}
		return len(url), nil
	}

	urls := []string{"a", "bb", "bad", "dddd", "eeeee"}
	results := Run(context.Background(), predict, urls, 2)

	require.Len(t, results, len(urls))
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.Equal(t, 2, results[1].Label)
	require.Error(t, results[2].Err)
	assert.NoError(t, results[4].Err, "a failed image must not cancel the rest")
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPrint(t *testing.T) {
	t.Parallel()

	breeds := classifier.Labels{"n02085620-Chihuahua", "n02085782-Japanese_spaniel"}

	var buf bytes.Buffer
	err := Print(&buf, []Result{
		{URL: "http://x/1.jpg", Label: 1},
		{URL: "http://x/2.jpg", Err: errors.New("No dog detected in the image.")},
	}, breeds)

	require.EqualError(t, err, "1 of 2 predictions failed")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "http://x/1.jpg\t1\tJapanese Spaniel", lines[0])
	assert.Equal(t, "http://x/2.jpg\terror: No dog detected in the image.", lines[1])
}

func TestPrintWithoutLabels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, []Result{{URL: "u", Label: 3}}, nil))
	assert.Equal(t, "u\t3\t"+classifier.UnknownBreed+"\n", buf.String())
}
