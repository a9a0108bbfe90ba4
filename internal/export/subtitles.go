// Package export renders transcripts as subtitles and assessments as
// spreadsheets for download.
package export

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/asticode/go-astisub"

	"care-assess/internal/model"
)

// ErrNoSegments is returned when a transcript has nothing to render.
var ErrNoSegments = errors.New("export: transcript has no segments")

// Subtitles builds one cue per segment, prefixed with the speaker name.
func Subtitles(segments []model.Segment) (*astisub.Subtitles, error) {
	subtitles := astisub.NewSubtitles()

	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Speaker != "" {
			text = s.Speaker + ": " + text
		}

		item := &astisub.Item{}
		item.StartAt = seconds(s.Start)
		item.EndAt = seconds(s.End)
		item.Lines = append(item.Lines, astisub.Line{Items: []astisub.LineItem{{Text: text}}})

		subtitles.Items = append(subtitles.Items, item)
	}

	if len(subtitles.Items) == 0 {
		return nil, ErrNoSegments
	}
	return subtitles, nil
}

func WriteSRT(w io.Writer, segments []model.Segment) error {
	subtitles, err := Subtitles(segments)
	if err != nil {
		return err
	}
	return subtitles.WriteToSRT(w)
}

func WriteWebVTT(w io.Writer, segments []model.Segment) error {
	subtitles, err := Subtitles(segments)
	if err != nil {
		return err
	}
	return subtitles.WriteToWebVTT(w)
}

func seconds(s float64) time.Duration {
	return time.Duration(int(s*1000)) * time.Millisecond
}
