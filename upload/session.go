package upload

import (
	"context"
	"errors"

	"github.com/bodgit/acep/palette"
	"github.com/sirupsen/logrus"
)

// State of an upload session
type State int

// Session states. Failed can be reached from any other state.
const (
	Init State = iota
	Sending
	Finalizing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Sending:
		return "sending"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result describes how far a session got.
type Result struct {
	State State
	// Sent is the number of chunks the controller confirmed
	Sent  int
	Total int
	// Attempts counts every request made, including retries
	Attempts int
	// ShowErr is set when the final refresh failed, the image was still
	// delivered
	ShowErr error
}

// OK reports whether the image was delivered
func (r *Result) OK() bool {
	return r.State == Done
}

var errNoChunks = errors.New("upload: nothing to send")

type session struct {
	c      *Client
	log    *logrus.Entry
	base   string
	init   string
	chunks []string
	cursor int
	state  State
	tries  int
}

// send issues one command with the retry budget, the cursor only moves on
// after a confirmed success.
func (s *session) send(ctx context.Context, command, body string, attempts int) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		s.tries++
		if err = s.c.post(ctx, s.base+command, body); err == nil {
			return nil
		}
		s.log.WithFields(logrus.Fields{
			"state":   s.state,
			"attempt": attempt,
			"of":      attempts,
		}).WithError(err).Warn("Command failed")
	}
	return &TransportError{
		Command:  token(command),
		Attempts: attempts,
		Err:      err,
	}
}

// token trims the chunk payload so errors and logs stay readable
func token(command string) string {
	for _, m := range []string{continueMarker, commitMarker} {
		if len(command) > len(m) && command[len(command)-len(m):] == m {
			return "<chunk>" + m
		}
	}
	return command
}

func (s *session) fail(err error) (*Result, error) {
	s.state = Failed
	s.log.WithError(err).WithField("sent", s.cursor).Error("Upload failed")
	return s.result(nil), err
}

func (s *session) result(showErr error) *Result {
	return &Result{
		State:    s.state,
		Sent:     s.cursor,
		Total:    len(s.chunks),
		Attempts: s.tries,
		ShowErr:  showErr,
	}
}

func (s *session) run(ctx context.Context) (*Result, error) {
	retries := s.c.Retries
	if retries < 1 {
		retries = DefaultRetries
	}

	s.state = Init
	if err := s.send(ctx, s.init, "", retries); err != nil {
		return s.fail(err)
	}

	s.state = Sending
	for s.cursor < len(s.chunks) {
		chunk := s.chunks[s.cursor]
		marker := continueMarker
		if s.cursor == len(s.chunks)-1 {
			marker = commitMarker
		}
		if err := s.send(ctx, chunk+marker, chunk, retries); err != nil {
			return s.fail(err)
		}
		s.cursor++
		s.log.WithField("chunk", s.cursor).Debug("Chunk sent")
	}

	s.state = Finalizing
	if s.c.Settle > 0 {
		s.c.Sleep(s.c.Settle)
	}

	// The panel may still apply the image on its next refresh so a failed
	// SHOW_ doesn't fail the session
	var showErr error
	if err := s.send(ctx, showCommand, "", retries); err != nil {
		showErr = err
		s.log.WithError(err).Warn("Refresh command failed, image was delivered")
	}

	s.state = Done
	s.log.WithFields(logrus.Fields{
		"chunks":   s.cursor,
		"attempts": s.tries,
	}).Info("Upload complete")

	return s.result(showErr), nil
}

// Upload sends chunks to the controller at host. init is the hardware
// specific initialisation token, palette.DefaultInitCommand is used when it's
// empty.
// It blocks until the session is done or has failed.
func (c *Client) Upload(ctx context.Context, host, init string, chunks []string) (*Result, error) {
	if len(chunks) == 0 {
		return nil, errNoChunks
	}
	if init == "" {
		init = palette.DefaultInitCommand
	}

	s := &session{
		c:      c,
		log:    c.Logger.WithField("host", host),
		base:   BaseURL(host),
		init:   init,
		chunks: chunks,
	}
	return s.run(ctx)
}
