package includes

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// maxLineSize bounds a single source line; generated files can be wide
const maxLineSize = 4 * 1024 * 1024

// ExtractionError reports a file whose includes could not be read.
// Line is the last line successfully scanned before the failure.
type ExtractionError struct {
	Path string
	Line int
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("extracting includes from %s (after line %d): %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("extracting includes from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ErrInvalidEncoding is wrapped by ExtractionError for files that are not UTF-8
var ErrInvalidEncoding = errors.New("file is not valid UTF-8")

// Includes returns the include directives of the file at path in file order.
//
// The sequence is lazy and restartable: every range over it opens and scans
// the file again. Unparseable directives are yielded with Kind Unparseable
// so callers can count them. A read or decode failure yields a single
// *ExtractionError as the final element.
func Includes(path string) iter.Seq2[Include, error] {
	return func(yield func(Include, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(Include{}, &ExtractionError{Path: path, Err: err})
			return
		}
		defer func() { _ = f.Close() }()

		scanner := bufio.NewScanner(transform.NewReader(f, encoding.UTF8Validator))
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if lineNo == 1 {
				line = strings.TrimPrefix(line, "\uFEFF")
			}

			inc, ok := ScanLine(line)
			if !ok {
				continue
			}
			inc.Line = lineNo
			if !yield(inc, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if errors.Is(err, encoding.ErrInvalidUTF8) {
				err = ErrInvalidEncoding
			}
			yield(Include{}, &ExtractionError{Path: path, Line: lineNo, Err: err})
		}
	}
}

// Collect drains Includes for path. Unparseable directives are dropped and
// counted. On error the partial result is discarded.
func Collect(path string) (incs []Include, unparseable int, err error) {
	for inc, err := range Includes(path) {
		if err != nil {
			return nil, 0, err
		}
		if inc.Kind == Unparseable {
			unparseable++
			continue
		}
		incs = append(incs, inc)
	}
	return incs, unparseable, nil
}
