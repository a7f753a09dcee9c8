package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(chunks []string) (*Extractor, []string) {
	e := New()
	var deltas []string
	for _, c := range chunks {
		if d := e.Feed(c); d != "" {
			deltas = append(deltas, d)
		}
	}
	return e, deltas
}

func TestFeed_SplitEscape(t *testing.T) {
	chunks := []string{`{"respo`, `nse":"Hello`, ` wor`, `ld\`, `nGoodbye","blueprint":{}}`}
	e, deltas := feedAll(chunks)

	assert.Equal(t, []string{"Hello", " wor", "ld", "\nGoodbye"}, deltas)
	assert.Equal(t, "Hello world\nGoodbye", e.Value())
	assert.Equal(t, Done, e.State())
	assert.Equal(t, strings.Join(chunks, ""), e.Raw())
}

func TestFeed_NoMarker(t *testing.T) {
	e, deltas := feedAll([]string{`{"blueprint":`, `{"type":"page"}}`})
	assert.Empty(t, deltas)
	assert.Equal(t, Seeking, e.State())
	assert.Equal(t, "", e.Value())
}

func TestFeed_MarkerNeedsExactBytes(t *testing.T) {
	e, _ := feedAll([]string{`{"response": "spaced"}`})
	assert.Equal(t, Seeking, e.State())
}

func TestFeed_IgnoresInputAfterField(t *testing.T) {
	e := New()
	assert.Equal(t, "a", e.Feed(`{"response":"a"`))
	assert.Equal(t, "", e.Feed(`,"response":"b"}`))
	assert.Equal(t, "a", e.Value())
}

func TestFeed_Escapes(t *testing.T) {
	doc := `{"response":"q\"b\\s\/t\t\u00e9\ud83d\ude00!x\u12zz"}`
	e, _ := feedAll([]string{doc})
	assert.Equal(t, "q\"b\\s/t\té😀!x�12zz", e.Value())
}

func TestFeed_LoneSurrogate(t *testing.T) {
	e, _ := feedAll([]string{`{"response":"a\ud83db"}`})
	assert.Equal(t, "a�b", e.Value())
}

// Every way of splitting the document into two or three chunks must yield
// the same value, and the deltas must concatenate to it.
func TestFeed_ChunkBoundaryInvariance(t *testing.T) {
	doc := `{"response":"héllo \"wörld\"\né 😀 \\done","blueprint":{}}`
	want := "héllo \"wörld\"\né 😀 \\done"

	for i := 0; i <= len(doc); i++ {
		for j := i; j <= len(doc); j += 3 {
			e, deltas := feedAll([]string{doc[:i], doc[i:j], doc[j:]})
			require.Equal(t, want, e.Value(), "split at %d,%d", i, j)
			require.Equal(t, want, strings.Join(deltas, ""), "split at %d,%d", i, j)
		}
	}
}

func TestFeed_ByteAtATime(t *testing.T) {
	doc := `{"response":"日本語 ✓","blueprint":{}}`
	e := New()
	var sb strings.Builder
	for i := 0; i < len(doc); i++ {
		d := e.Feed(doc[i : i+1])
		assert.True(t, d == "" || strings.ToValidUTF8(d, "") == d, "delta %q is not valid UTF-8", d)
		sb.WriteString(d)
	}
	assert.Equal(t, "日本語 ✓", sb.String())
}

type sliceSource struct {
	chunks []string
	err    error
}

func (s *sliceSource) Next() (string, bool, error) {
	if len(s.chunks) == 0 {
		return "", true, s.err
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, false, nil
}

func TestRun(t *testing.T) {
	src := &sliceSource{chunks: []string{`{"response":"he`, `y","blueprint":{}}`}}
	var got []string
	raw, err := Run(context.Background(), src, func(d string) { got = append(got, d) })
	require.NoError(t, err)
	assert.Equal(t, `{"response":"hey","blueprint":{}}`, raw)
	assert.Equal(t, []string{"he", "y"}, got)
}

func TestRun_SourceError(t *testing.T) {
	boom := errors.New("boom")
	src := &sliceSource{chunks: []string{`{"response":"partial`}, err: boom}
	raw, err := Run(context.Background(), src, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, `{"response":"partial`, raw)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, &sliceSource{chunks: []string{"x"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
