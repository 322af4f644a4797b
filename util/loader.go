// Package util - Helpers for offline frame replay.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FrameFile is one frame of a recorded sequence.
type FrameFile struct {
	// Path is the location the frame was read from.
	Path string
	// Data is the raw encoded image bytes.
	Data []byte
	// Index is the frame number parsed from the file name.
	Index int
}

// LoadFrameSequence reads the numbered image files of a directory in
// ascending frame order. File names carry the frame number as the trailing
// digits of their base name, e.g. frame-0012.jpg. Files without a trailing
// number, and non-image files, are skipped.
func LoadFrameSequence(dir string) ([]FrameFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading frame directory %s", dir)
	}

	var frames []FrameFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".bmp":
		default:
			continue
		}

		index, ok := frameIndex(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading frame %s", path)
		}
		frames = append(frames, FrameFile{Path: path, Data: data, Index: index})
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Index < frames[j].Index
	})
	return frames, nil
}

// frameIndex parses the trailing digit run of a file base name.
func frameIndex(base string) (int, bool) {
	end := len(base)
	start := end
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(base[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
