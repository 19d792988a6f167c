package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"math"
	"strings"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/LdDl/traffiq-go/pipeline"
	"github.com/LdDl/traffiq-go/speed"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const maxLineSize = 10 << 20

var errInvalidLine = errors.New("line is not a JSON object")

// decodeFrame parses {"frame":N,"detections":[{"class":"car","bbox":[x1,y1,x2,y2],"confidence":0.9}]}.
// Missing frame index is replaced with fallbackIndex. Detections with unreadable boxes are kept
// with NaN coordinates so the pipeline drops them as malformed.
func decodeFrame(line []byte, fallbackIndex int) (pipeline.Frame, error) {
	if !gjson.ValidBytes(line) {
		return pipeline.Frame{}, errInvalidLine
	}
	parsed := gjson.ParseBytes(line)
	if !parsed.IsObject() {
		return pipeline.Frame{}, errInvalidLine
	}
	frame := pipeline.Frame{Index: fallbackIndex}
	if index := parsed.Get("frame"); index.Exists() {
		frame.Index = int(index.Int())
	}
	items := parsed.Get("detections").Array()
	frame.Detections = make([]mot.Detection, 0, len(items))
	for _, item := range items {
		detection := mot.Detection{
			Class:      item.Get("class").String(),
			BBox:       decodeBBox(item.Get("bbox")),
			Confidence: 1.0,
			FrameIndex: frame.Index,
		}
		if confidence := item.Get("confidence"); confidence.Exists() {
			detection.Confidence = numberOrNaN(confidence)
		}
		frame.Detections = append(frame.Detections, detection)
	}
	return frame, nil
}

func decodeBBox(value gjson.Result) mot.BBox {
	coords := value.Array()
	if len(coords) != 4 {
		nan := math.NaN()
		return mot.NewBBox(nan, nan, nan, nan)
	}
	return mot.NewBBox(numberOrNaN(coords[0]), numberOrNaN(coords[1]), numberOrNaN(coords[2]), numberOrNaN(coords[3]))
}

func numberOrNaN(value gjson.Result) float64 {
	if value.Type != gjson.Number {
		return math.NaN()
	}
	return value.Num
}

// encodeResult sets "vehicles", "violations" and "passthrough" (plus "tracking_error" if any) on the input line
func encodeResult(line []byte, result pipeline.Result, decimals int) ([]byte, error) {
	vehicles := make([]string, 0, len(result.Vehicles))
	for _, vehicle := range result.Vehicles {
		item, err := setFields("{}", []field{
			{"bbox", bboxArray(vehicle.BBox)},
			{"track_id", vehicle.TrackID.String()},
			{"class", vehicle.Class},
			{"speed", speed.Round(vehicle.Speed, decimals)},
			{"speed_available", vehicle.SpeedAvailable},
		})
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, item)
	}
	violations := make([]string, 0, len(result.Violations))
	for _, bbox := range result.Violations {
		item, err := setFields("{}", []field{{"bbox", bboxArray(bbox)}})
		if err != nil {
			return nil, err
		}
		violations = append(violations, item)
	}
	passthrough := make([]string, 0, len(result.Passthrough))
	for _, detection := range result.Passthrough {
		item, err := setFields("{}", []field{
			{"class", detection.Class},
			{"bbox", bboxArray(detection.BBox)},
			{"confidence", detection.Confidence},
		})
		if err != nil {
			return nil, err
		}
		passthrough = append(passthrough, item)
	}

	out := line
	var err error
	for _, raw := range []struct {
		path  string
		items []string
	}{
		{"vehicles", vehicles},
		{"violations", violations},
		{"passthrough", passthrough},
	} {
		out, err = sjson.SetRawBytes(out, raw.path, []byte("["+strings.Join(raw.items, ",")+"]"))
		if err != nil {
			return nil, errors.Wrapf(err, "can't set '%s'", raw.path)
		}
	}
	if result.TrackingError != nil {
		out, err = sjson.SetBytes(out, "tracking_error", result.TrackingError.Error())
		if err != nil {
			return nil, errors.Wrap(err, "can't set 'tracking_error'")
		}
	}
	return out, nil
}

type field struct {
	path  string
	value interface{}
}

func setFields(doc string, fields []field) (string, error) {
	var err error
	for _, f := range fields {
		doc, err = sjson.Set(doc, f.path, f.value)
		if err != nil {
			return "", errors.Wrapf(err, "can't set '%s'", f.path)
		}
	}
	return doc, nil
}

func bboxArray(bbox mot.BBox) []float64 {
	return []float64{bbox.X1, bbox.Y1, bbox.X2, bbox.Y2}
}

// jsonLines reads frames from one JSON document per line and writes annotated documents back in the same order.
// Lines which are not JSON objects are logged and echoed unchanged.
type jsonLines struct {
	scanner  *bufio.Scanner
	writer   *bufio.Writer
	logger   zerolog.Logger
	decimals int
	lineNo   int
	current  []byte
}

func newJSONLines(r io.Reader, w io.Writer, decimals int, logger zerolog.Logger) *jsonLines {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &jsonLines{
		scanner:  scanner,
		writer:   bufio.NewWriter(w),
		logger:   logger,
		decimals: decimals,
	}
}

// Next implements pipeline.Source
func (jl *jsonLines) Next(ctx context.Context) (pipeline.Frame, error) {
	for jl.scanner.Scan() {
		lineIndex := jl.lineNo
		jl.lineNo++
		line := jl.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		frame, err := decodeFrame(line, lineIndex)
		if err != nil {
			jl.logger.Warn().Err(err).Int("line", lineIndex+1).Msg("line passed through")
			if err := jl.writeLine(line); err != nil {
				return pipeline.Frame{}, err
			}
			continue
		}
		jl.current = append(jl.current[:0], line...)
		return frame, nil
	}
	if err := jl.scanner.Err(); err != nil {
		return pipeline.Frame{}, errors.Wrap(err, "can't read input")
	}
	return pipeline.Frame{}, io.EOF
}

// Emit implements pipeline.Sink
func (jl *jsonLines) Emit(ctx context.Context, result pipeline.Result) error {
	out, err := encodeResult(jl.current, result, jl.decimals)
	if err != nil {
		return err
	}
	return jl.writeLine(out)
}

func (jl *jsonLines) writeLine(line []byte) error {
	if _, err := jl.writer.Write(line); err != nil {
		return errors.Wrap(err, "can't write output")
	}
	if err := jl.writer.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "can't write output")
	}
	return jl.writer.Flush()
}
