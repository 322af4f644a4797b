package inference

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ParseLabels reads a newline-delimited label table: one class name per
// line, index equal to the 0-based line number. Empty lines are preserved as
// literal labels so that indexes stay aligned with the model's class order;
// skipping them would shift every subsequent class.
//
// On a read failure the labels scanned so far are returned alongside the
// error, so a caller can proceed with a partial table.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return labels, errors.Wrap(err, "reading label table")
	}
	return labels, nil
}

// LoadLabelFile reads a label table from disk via ParseLabels.
func LoadLabelFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening label file %s", path)
	}
	defer f.Close()
	return ParseLabels(f)
}
