package file

import (
	"context"
	"io"
	"os"

	"dataunifier/internal/errs"
)

// Local opens a file on the local disk. It satisfies datasource.Source.
type Local struct{ Path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{Path: path} }

// Open returns the file for reading. A canceled ctx is reported without
// touching the filesystem.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, errs.Inputf(`Could not open file "%s": %v`, l.Path, err)
	}
	return f, nil
}
