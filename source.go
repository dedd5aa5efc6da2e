package sbpatch

import (
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// DiffSource acquires the diff text: a stdin pipe when one is
// attached, the system clipboard otherwise.
type DiffSource struct{}

func NewDiffSource() *DiffSource {
	return &DiffSource{}
}

func (s *DiffSource) Read() (string, error) {
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		c, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(c), nil
	}

	c, err := clipboard.ReadAll()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(c), nil
}
