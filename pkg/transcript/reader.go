package transcript

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/claudelogs/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// ScanLimits bounds a single file scan.
type ScanLimits struct {
	// MaxLines caps the number of lines FirstLastLines looks at.
	MaxLines int
	// Timeout is the wall-clock budget of one FirstLastLines or
	// IsSessionFile call.
	Timeout time.Duration
	// MaxLineSize is the longest line that can be read, in bytes.
	MaxLineSize int
}

// DefaultScanLimits returns the limits used when none are configured.
func DefaultScanLimits() ScanLimits {
	return ScanLimits{
		MaxLines:    100000,
		Timeout:     30 * time.Second,
		MaxLineSize: 32 * 1024 * 1024,
	}
}

func (l ScanLimits) withDefaults() ScanLimits {
	d := DefaultScanLimits()
	if l.MaxLines <= 0 {
		l.MaxLines = d.MaxLines
	}
	if l.Timeout <= 0 {
		l.Timeout = d.Timeout
	}
	if l.MaxLineSize <= 0 {
		l.MaxLineSize = d.MaxLineSize
	}
	return l
}

// FirstLast is the result of a bounded first/last line scan.
type FirstLast struct {
	First string
	Last  string
	// LineCount is the number of non-empty lines seen.
	LineCount int
	// Truncated is set when the scan stopped at ScanLimits.MaxLines.
	Truncated bool
}

// scannerBufPool recycles the initial bufio.Scanner buffers. Longer lines
// grow the buffer up to ScanLimits.MaxLineSize.
var scannerBufPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 1024*1024)
	},
}

func getScannerBuffer() []byte {
	return scannerBufPool.Get().([]byte)
}

func putScannerBuffer(buf []byte) {
	scannerBufPool.Put(buf)
}

// Reader streams transcript files line by line.
type Reader struct {
	parser *Parser
	limits ScanLimits
	log    *logrus.Entry
}

// NewReader creates a Reader. Zero limits take their defaults.
func NewReader(parser *Parser, limits ScanLimits, log *logrus.Entry) *Reader {
	return &Reader{parser: parser, limits: limits.withDefaults(), log: log}
}

// Limits returns the effective scan limits.
func (r *Reader) Limits() ScanLimits {
	return r.limits
}

func (r *Reader) newScanner(rd io.Reader) (*bufio.Scanner, func()) {
	buf := getScannerBuffer()
	scanner := bufio.NewScanner(rd)
	max := r.limits.MaxLineSize
	scanner.Buffer(buf[:0:min(cap(buf), max)], max)
	return scanner, func() { putScannerBuffer(buf) }
}

// ReadJSONLFile parses every line of path and returns the messages that
// survived parsing, in file order.
func (r *Reader) ReadJSONLFile(ctx context.Context, path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ReadFailed(path, err)
	}
	defer f.Close()

	scanner, release := r.newScanner(f)
	defer release()

	var messages []Message
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if msg := r.parser.ParseLine(line); msg != nil {
			messages = append(messages, *msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ReadFailed(path, err)
	}
	return messages, nil
}

// FirstLastLines scans path for its first and last non-empty lines without
// holding the file in memory.
func (r *Reader) FirstLastLines(ctx context.Context, path string) (FirstLast, error) {
	f, err := os.Open(path)
	if err != nil {
		return FirstLast{}, errors.ReadFailed(path, err)
	}
	return r.firstLastLines(ctx, path, f)
}

func (r *Reader) firstLastLines(ctx context.Context, path string, rc io.ReadCloser) (FirstLast, error) {
	return bounded(ctx, r.limits.Timeout, path, rc, func() (FirstLast, error) {
		return r.scanFirstLast(path, rc)
	})
}

func (r *Reader) scanFirstLast(path string, rd io.Reader) (FirstLast, error) {
	scanner, release := r.newScanner(rd)
	defer release()

	var fl FirstLast
	processed := 0
	for scanner.Scan() {
		if processed == r.limits.MaxLines {
			fl.Truncated = true
			r.log.WithFields(logrus.Fields{
				"path":      path,
				"max_lines": r.limits.MaxLines,
			}).Warn("Line limit reached, using partial scan")
			break
		}
		processed++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fl.LineCount++
		if fl.First == "" {
			fl.First = line
		}
		fl.Last = line
	}
	if !fl.Truncated {
		if err := scanner.Err(); err != nil {
			return FirstLast{}, errors.ReadFailed(path, err)
		}
	}
	return fl, nil
}

// IsSessionFile reports whether the first non-empty line of path looks like
// a conversation record. Summary files, empty or unreadable files and files
// that start with a JSON value other than a record are not session files. A
// first line that is not JSON at all (a torn write) still counts, so that
// metadata assembly can try to salvage the file.
func (r *Reader) IsSessionFile(ctx context.Context, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		r.log.WithError(err).WithField("path", path).Debug("Cannot open transcript")
		return false
	}
	first, err := bounded(ctx, r.limits.Timeout, path, f, func() (string, error) {
		scanner, release := r.newScanner(f)
		defer release()
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line, nil
			}
		}
		return "", scanner.Err()
	})
	if err != nil {
		r.log.WithError(err).WithField("path", path).Debug("Cannot classify transcript")
		return false
	}
	return isSessionLine(first)
}

func isSessionLine(line string) bool {
	if line == "" {
		return false
	}
	if !gjson.Valid(line) {
		return true
	}
	doc := gjson.Parse(line)
	if !doc.IsObject() {
		return false
	}
	if doc.Get("type").String() == string(TypeSummary) {
		return false
	}
	return doc.Get("sessionId").Exists() || doc.Get("message").Exists()
}

// bounded runs scan in its own goroutine and settles on whichever comes
// first: scan finishing, the timeout, or ctx. rc is closed exactly once in
// every case, which also unblocks a scan stuck in Read.
func bounded[T any](ctx context.Context, timeout time.Duration, path string, rc io.Closer, scan func() (T, error)) (T, error) {
	var once sync.Once
	teardown := func() {
		once.Do(func() { rc.Close() })
	}
	defer teardown()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := scan()
		done <- result{v, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case res := <-done:
		return res.value, res.err
	case <-timer.C:
		teardown()
		return zero, errors.ScanTimeout(path, timeout)
	case <-ctx.Done():
		teardown()
		return zero, ctx.Err()
	}
}
