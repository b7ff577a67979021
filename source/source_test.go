package source

import (
	"context"
	"errors"
	"image"
	"io"
	"strings"
	"testing"
)

func drain(t *testing.T, s Source) []string {
	t.Helper()
	var out []string
	for {
		v, err := s.Next(t.Context())
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, v)
	}
}

func TestLineSource(t *testing.T) {
	in := "ff0@SGVsbG8=\r\n\n   \n{\"ver\":0}\nlast"
	got := drain(t, NewLineSource(strings.NewReader(in)))
	want := []string{"ff0@SGVsbG8=", `{"ver":0}`, "last"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestLineSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewLineSource(strings.NewReader("a\n")).Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Next error = %v, want context.Canceled", err)
	}
}

func TestSliceSource(t *testing.T) {
	got := drain(t, NewSliceSource([]string{"a", "b"}))
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("items = %v", got)
	}
}

func TestDetectedSource(t *testing.T) {
	frames := make(chan image.Image, 4)
	good := image.NewGray(image.Rect(0, 0, 1, 1))
	bad := image.NewGray(image.Rect(0, 0, 2, 2))
	frames <- good
	frames <- bad
	frames <- good
	close(frames)

	det := DetectorFunc(func(img image.Image) ([]string, error) {
		if img.Bounds().Dx() == 2 {
			return nil, errors.New("blurred")
		}
		return []string{"x", "y"}, nil
	})

	got := drain(t, NewDetectedSource(frames, det, nil))
	if strings.Join(got, "") != "xyxy" {
		t.Errorf("detected = %v, want [x y x y]", got)
	}
}
