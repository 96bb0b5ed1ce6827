package transcript

import (
	"context"
	"io"
	stdlog "log"
	"strings"

	"github.com/grovetools/claudelogs/errors"
	"github.com/hpcloud/tail"
)

// FollowOptions tunes Follow.
type FollowOptions struct {
	// FromStart replays the existing lines before following new ones.
	FromStart bool
	// Poll uses stat polling instead of inotify, for network filesystems.
	Poll bool
}

// Follow tails a single transcript and calls fn for every parsed line,
// including lines appended after the call. It returns when ctx is done.
func (s *Service) Follow(ctx context.Context, path string, opts FollowOptions, fn func(Message)) error {
	whence := io.SeekEnd
	if opts.FromStart {
		whence = io.SeekStart
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      opts.Poll,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return errors.ReadFailed(path, err)
	}
	defer t.Cleanup()
	defer t.Stop()

	log := s.log.WithField("path", path)
	log.Debug("Following transcript")

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				if err := t.Err(); err != nil {
					return errors.ReadFailed(path, err)
				}
				return nil
			}
			if line.Err != nil {
				log.WithError(line.Err).Debug("Error reading line")
				continue
			}
			if strings.TrimSpace(line.Text) == "" {
				continue
			}
			if msg := s.parser.ParseLine(line.Text); msg != nil {
				fn(*msg)
			}
		}
	}
}
