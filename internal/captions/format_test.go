package captions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssTime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00.00"},
		{1.5, "0:00:01.50"},
		{61.25, "0:01:01.25"},
		{3661.999, "1:01:02.00"},
		{-2, "0:00:00.00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, assTime(tc.in), "assTime(%v)", tc.in)
	}
}

func TestSrtTime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.251, "00:01:01,251"},
		{3661.0015, "01:01:01,002"},
		{-2, "00:00:00,000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, srtTime(tc.in), "srtTime(%v)", tc.in)
	}
}

func TestWriteSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	cues := []Cue{
		{Start: 0, End: 1.5, Text: "First line"},
		{Start: 2, End: 3.25, Text: "Second line"},
	}

	require.NoError(t, WriteSRT(path, cues))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "1\n00:00:00,000 --> 00:00:01,500\nFirst line\n\n" +
		"2\n00:00:02,000 --> 00:00:03,250\nSecond line\n\n"
	assert.Equal(t, want, string(data))
}

func TestWriteASS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ass")
	cues := []Cue{
		{Start: 0, End: 2, Text: "Title", Layer: LayerIntro},
		{Start: 2, End: 3.5, Text: "Body text"},
	}

	require.NoError(t, WriteASS(path, cues, DefaultStyle()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "PlayResX: 1080")
	assert.Contains(t, out, "PlayResY: 1920")
	assert.Contains(t, out, "Style: Body,Noto Sans CJK KR,54,")
	assert.Contains(t, out, "Style: Intro,Noto Sans CJK KR,70,")
	assert.Contains(t, out, "Dialogue: 0,0:00:00.00,0:00:02.00,Intro,,0,0,0,,Title")
	assert.Contains(t, out, "Dialogue: 0,0:00:02.00,0:00:03.50,Body,,0,0,0,,Body text")
}

func TestWriteASSEscapesNewlines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.ass")
	cues := []Cue{{Start: 0, End: 1, Text: "line one\nline two"}}

	require.NoError(t, WriteASS(path, cues, Style{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `line one\Nline two`))
}
