package main

import (
	"bytes"
	"context"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/LdDl/traffiq-go/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestDecodeFrame(t *testing.T) {
	frame, err := decodeFrame([]byte(`{"frame":7,"detections":[{"class":"car","bbox":[10,10,50,50],"confidence":0.9},{"class":"helmet","bbox":[1,2,3,4]}]}`), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, frame.Index)
	require.Len(t, frame.Detections, 2)
	assert.Equal(t, mot.Detection{Class: "car", BBox: mot.NewBBox(10, 10, 50, 50), Confidence: 0.9, FrameIndex: 7}, frame.Detections[0])
	// Missing confidence
	assert.Equal(t, 1.0, frame.Detections[1].Confidence)

	frame, err = decodeFrame([]byte(`{"detections":[]}`), 12)
	require.NoError(t, err)
	assert.Equal(t, 12, frame.Index)
	assert.Empty(t, frame.Detections)

	frame, err = decodeFrame([]byte(`{"frame":1,"detections":[{"class":"car","bbox":[10,10,50]},{"class":"car","bbox":["a",1,2,3]}]}`), 0)
	require.NoError(t, err)
	require.Len(t, frame.Detections, 2)
	assert.True(t, math.IsNaN(frame.Detections[0].BBox.X1))
	assert.Error(t, frame.Detections[0].Validate())
	assert.Error(t, frame.Detections[1].Validate())

	_, err = decodeFrame([]byte(`not json`), 0)
	assert.ErrorIs(t, err, errInvalidLine)
	_, err = decodeFrame([]byte(`[1,2,3]`), 0)
	assert.ErrorIs(t, err, errInvalidLine)
}

func TestEncodeResultKeepsInput(t *testing.T) {
	line := []byte(`{"frame":3,"camera":"north","detections":[]}`)
	out, err := encodeResult(line, pipeline.Result{
		FrameIndex: 3,
		Violations: []mot.BBox{mot.NewBBox(0, 0, 100, 200)},
		Passthrough: []mot.Detection{
			{Class: "dog", BBox: mot.NewBBox(1, 1, 5, 5), Confidence: 0.7},
		},
		TrackingError: pipeline.ErrFrameOutOfOrder,
	}, 2)
	require.NoError(t, err)
	parsed := gjson.ParseBytes(out)
	assert.Equal(t, "north", parsed.Get("camera").String())
	assert.Equal(t, int64(3), parsed.Get("frame").Int())
	assert.Empty(t, parsed.Get("vehicles").Array())
	assert.Equal(t, `[0,0,100,200]`, parsed.Get("violations.0.bbox").Raw)
	assert.Equal(t, "dog", parsed.Get("passthrough.0.class").String())
	assert.Equal(t, 0.7, parsed.Get("passthrough.0.confidence").Float())
	assert.Contains(t, parsed.Get("tracking_error").String(), "out of order")
}

func runLines(t *testing.T, input string) ([]gjson.Result, []string) {
	t.Helper()
	p, err := pipeline.NewProcessor(pipeline.DefaultConfig())
	require.NoError(t, err)
	var out bytes.Buffer
	lines := newJSONLines(strings.NewReader(input), &out, 2, zerolog.Nop())
	require.NoError(t, p.Run(context.Background(), lines, lines))

	raw := strings.Split(strings.TrimSpace(out.String()), "\n")
	results := make([]gjson.Result, 0, len(raw))
	for _, line := range raw {
		results = append(results, gjson.Parse(line))
	}
	return results, raw
}

func TestJSONLinesScenario(t *testing.T) {
	input := strings.Join([]string{
		`{"frame":1,"detections":[{"class":"car","bbox":[10,10,50,50],"confidence":0.9}]}`,
		`{"frame":2,"detections":[{"class":"car","bbox":[20,10,60,50],"confidence":0.9},{"class":"person","bbox":[0,0,100,200],"confidence":0.8},{"class":"helmet","bbox":[10,0,50,40],"confidence":0.8}]}`,
		``,
		`garbage`,
		`{"frame":3,"detections":[{"class":"person","bbox":[0,0,100,200],"confidence":0.8},{"class":"traffic light","bbox":[0,0,5,15],"confidence":0.8}]}`,
	}, "\n")
	results, raw := runLines(t, input)
	require.Len(t, results, 4)

	first := results[0].Get("vehicles").Array()
	require.Len(t, first, 1)
	assert.Equal(t, 0.0, first[0].Get("speed").Float())
	assert.True(t, first[0].Get("speed_available").Bool())

	second := results[1].Get("vehicles").Array()
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Get("track_id").String(), second[0].Get("track_id").String())
	assert.Equal(t, "car", second[0].Get("class").String())
	assert.Equal(t, 108.0, second[0].Get("speed").Float())
	assert.Equal(t, `[20,10,60,50]`, second[0].Get("bbox").Raw)
	assert.Empty(t, results[1].Get("violations").Array())

	assert.Equal(t, "garbage", raw[2])

	require.Len(t, results[3].Get("violations").Array(), 1)
	require.Len(t, results[3].Get("passthrough").Array(), 1)
	assert.Equal(t, "traffic light", results[3].Get("passthrough.0.class").String())
}

func TestJSONLinesFallbackIndex(t *testing.T) {
	input := `{"detections":[{"class":"bus","bbox":[0,0,40,40],"confidence":0.9}]}` + "\n" +
		`{"detections":[{"class":"bus","bbox":[3,0,43,40],"confidence":0.9}]}` + "\n"
	results, _ := runLines(t, input)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Get("vehicles.0.track_id").String(), results[1].Get("vehicles.0.track_id").String())
	// One frame apart at 30 fps: 3 px / 10 px/m * 30 * 3.6
	assert.Equal(t, 32.4, results[1].Get("vehicles.0.speed").Float())
}

func TestJSONLinesEOF(t *testing.T) {
	lines := newJSONLines(strings.NewReader(""), io.Discard, 2, zerolog.Nop())
	_, err := lines.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
