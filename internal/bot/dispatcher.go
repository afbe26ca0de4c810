// Package bot turns inbound chat events into verification tasks.
//
// Every event runs as its own task with a request id, a deadline and an
// error boundary, so one user's slow or failing task never blocks another's
// and never takes the process down.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"verigate/internal/chat"
	"verigate/internal/verification/models"
	"verigate/pkg/requestcontext"
)

// Commands recognised in direct messages. Matching is on the whole message.
const (
	CommandStatus = "!status"
	CommandHelp   = "!help"
)

const (
	defaultTaskTimeout = 15 * time.Second
	// failureNoticeTimeout bounds the apology DM sent after a task failed,
	// which may run after the task's own deadline has passed.
	failureNoticeTimeout = 5 * time.Second
)

// ErrShuttingDown is returned by Shutdown when in-flight tasks did not drain in time.
var ErrShuttingDown = errors.New("dispatcher shutdown timed out")

// Service is the verification behaviour driven by chat events.
type Service interface {
	SubmitCredential(ctx context.Context, sub models.Submission) (models.Outcome, error)
	Status(ctx context.Context, userID string) models.StatusReport
	OnMemberJoin(ctx context.Context, member models.Member) error
}

// Notifier answers commands and reports failed tasks.
type Notifier interface {
	Status(ctx context.Context, userID string, report models.StatusReport) error
	Help(ctx context.Context, userID string) error
	Failed(ctx context.Context, userID string) error
}

// Dispatcher implements chat.EventSink.
type Dispatcher struct {
	service  Service
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	tasks  sync.WaitGroup
}

var _ chat.EventSink = (*Dispatcher)(nil)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTaskTimeout bounds each task.
func WithTaskTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// New creates a Dispatcher.
func New(service Service, notifier Notifier, opts ...Option) (*Dispatcher, error) {
	if service == nil {
		return nil, errors.New("service is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	d := &Dispatcher{
		service:  service,
		notifier: notifier,
		logger:   slog.Default(),
		timeout:  defaultTaskTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// MemberJoined starts the onboarding task for m.
func (d *Dispatcher) MemberJoined(ctx context.Context, m chat.Member) {
	d.spawn(ctx, "member_join", m.UserID, false, func(ctx context.Context) error {
		return d.service.OnMemberJoin(ctx, models.Member{UserID: m.UserID, DisplayName: m.DisplayName})
	})
}

// DirectMessageReceived starts a task for a command or a credential submission.
func (d *Dispatcher) DirectMessageReceived(ctx context.Context, dm chat.DirectMessage) {
	d.spawn(ctx, "direct_message", dm.UserID, true, func(ctx context.Context) error {
		return d.handleDirectMessage(ctx, dm)
	})
}

func (d *Dispatcher) handleDirectMessage(ctx context.Context, dm chat.DirectMessage) error {
	// Only exact command words are commands; anything else may be a credential.
	switch strings.ToLower(strings.TrimSpace(dm.Text)) {
	case CommandStatus:
		report := d.service.Status(ctx, dm.UserID)
		return d.notifier.Status(ctx, dm.UserID, report)
	case CommandHelp:
		return d.notifier.Help(ctx, dm.UserID)
	}

	_, err := d.service.SubmitCredential(ctx, models.Submission{
		UserID:      dm.UserID,
		DisplayName: dm.DisplayName,
		Credential:  dm.Text,
	})
	return err
}

// spawn runs fn as a detached task. The task outlives the caller's context
// but not its own deadline.
func (d *Dispatcher) spawn(parent context.Context, kind, userID string, direct bool, fn func(context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.WarnContext(parent, "dropping event during shutdown", "kind", kind, "user_id", userID)
		return
	}
	d.tasks.Add(1)
	d.mu.Unlock()

	requestID := uuid.NewString()
	base := context.WithoutCancel(parent)
	base = requestcontext.WithRequestID(base, requestID)
	base = requestcontext.WithUserID(base, userID)
	base = requestcontext.WithTime(base, time.Now())

	go func() {
		defer d.tasks.Done()

		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		start := time.Now()
		err := d.run(ctx, fn)
		if err == nil {
			d.logger.DebugContext(ctx, "task completed",
				"kind", kind,
				"user_id", userID,
				"request_id", requestID,
				"duration", time.Since(start),
			)
			return
		}

		d.logger.ErrorContext(ctx, "task failed",
			"kind", kind,
			"user_id", userID,
			"request_id", requestID,
			"error", err,
		)
		if direct {
			noticeCtx, cancelNotice := context.WithTimeout(base, failureNoticeTimeout)
			defer cancelNotice()
			_ = d.notifier.Failed(noticeCtx, userID)
		}
	}()
}

// run calls fn, converting a panic into an error.
func (d *Dispatcher) run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "task panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every started task has finished.
func (d *Dispatcher) Wait() {
	d.tasks.Wait()
}

// Shutdown stops accepting events and waits for in-flight tasks until ctx ends.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrShuttingDown, ctx.Err())
	}
}
