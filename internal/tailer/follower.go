// Package tailer reads records from growing client log files.
//
// Poller is the resumable reader: it polls a file by byte offset, saves
// checkpoints and survives truncation and rotation. Follower is the live
// mode built on nxadm/tail: it starts at the end of the file and reopens
// it when it is recreated, without checkpoints.
package tailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/nxadm/tail"

	"github.com/arenalog/arenalog-go/internal/frame"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// followerErrBuffer is the buffer size for the error channel.
// A small buffer prevents error loss during brief moments when the consumer
// is busy processing records.
const followerErrBuffer = 16

// Follower wraps nxadm/tail and feeds its lines through a frame extractor.
type Follower struct {
	t       *tail.Tail
	ctx     context.Context
	cancel  context.CancelFunc
	ext     *frame.Extractor
	records chan event.RawLogEvent
	errors  chan error
	doneCh  chan struct{}

	mu      sync.Mutex
	stopped bool
}

// FollowConfig holds configuration for following.
type FollowConfig struct {
	// ReOpen reopens the file when it's truncated or recreated (tail -F).
	ReOpen bool

	// Poll uses polling instead of inotify (more compatible but less efficient).
	Poll bool

	// MustExist requires the file to exist before starting (false = wait for creation).
	MustExist bool

	// FromStart reads from the beginning of the file instead of the end.
	FromStart bool
}

// DefaultFollowConfig returns the default configuration for client logs.
func DefaultFollowConfig() FollowConfig {
	return FollowConfig{
		ReOpen:    true,
		Poll:      false, // Use inotify/ReadDirectoryChangesW when available
		MustExist: true,
		FromStart: false, // Start from end (tail -f behavior)
	}
}

// Follow starts following the specified file.
// The provided context controls the follower's lifecycle.
func Follow(ctx context.Context, filepath string, cfg FollowConfig) (*Follower, error) {
	location := &tail.SeekInfo{Offset: 0, Whence: 2} // End of file
	if cfg.FromStart {
		location = &tail.SeekInfo{Offset: 0, Whence: 0} // Start of file
	}

	t, err := tail.TailFile(filepath, tail.Config{
		Follow:    true,
		ReOpen:    cfg.ReOpen,
		Poll:      cfg.Poll,
		MustExist: cfg.MustExist,
		Location:  location,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening tail: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	f := &Follower{
		t:       t,
		ctx:     ctx,
		cancel:  cancel,
		ext:     frame.NewExtractor(),
		records: make(chan event.RawLogEvent),
		errors:  make(chan error, followerErrBuffer),
		doneCh:  make(chan struct{}),
	}

	go f.run()

	return f, nil
}

// Records returns a channel that receives complete records.
func (f *Follower) Records() <-chan event.RawLogEvent {
	return f.records
}

// Errors returns a channel that receives errors from tailing.
// Errors are sent non-blocking; if the channel is not read, errors are dropped.
func (f *Follower) Errors() <-chan error {
	return f.errors
}

// Stop stops following and closes all channels.
// Safe to call multiple times.
func (f *Follower) Stop() error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	f.mu.Unlock()

	f.cancel()
	<-f.doneCh
	return f.t.Stop()
}

func (f *Follower) run() {
	defer close(f.doneCh)
	defer close(f.records)
	defer close(f.errors)

	for {
		select {
		case <-f.ctx.Done():
			return
		case line, ok := <-f.t.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				select {
				case f.errors <- fmt.Errorf("tail: %w", line.Err):
				case <-f.ctx.Done():
					return
				default:
				}
				continue
			}
			// nxadm/tail strips the line break; the extractor needs it to
			// close records.
			for _, rec := range f.ext.Feed([]byte(line.Text + "\n")) {
				select {
				case f.records <- rec:
				case <-f.ctx.Done():
					return
				}
			}
		}
	}
}
