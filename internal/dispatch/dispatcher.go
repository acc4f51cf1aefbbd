// Package dispatch runs row actions against remote services: a confirmation
// step for destructive actions, at most one request in flight per dispatcher,
// and exactly one notification per finished request.
package dispatch

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

type State int

const (
	Idle State = iota
	Confirming
	Submitting
)

func (s State) String() string {
	switch s {
	case Confirming:
		return "confirming"
	case Submitting:
		return "submitting"
	}
	return "idle"
}

// Prompt is what the confirmation dialog shows.
type Prompt struct {
	Title        string
	Description  string
	Alert        string
	ConfirmLabel string
}

type Action struct {
	Name        string
	Targets     []string
	Destructive bool
	Confirm     Prompt
	// Success is the body of the success notification, Failure the title of
	// the error one.
	Success string
	Failure string
	Run     func(ctx context.Context) error
}

// ResultMsg carries a finished request back into the update loop.
type ResultMsg struct {
	DispatcherID string
	RequestID    string
	Action       string
	Targets      []string
	Err          error
	Elapsed      time.Duration
}

type Outcome struct {
	Handled   bool
	Action    string
	Targets   []string
	Err       error
	Refresh   bool
	Elapsed   time.Duration
	Succeeded bool
}

// ServerMessage is implemented by errors that carry text written by the
// remote service for the user.
type ServerMessage interface {
	ServerMessage() string
}

type Option func(*Dispatcher)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

type Dispatcher struct {
	id       string
	notifier Notifier
	log      *zap.SugaredLogger
	timeout  time.Duration

	state     State
	pending   Action
	requestID string
	started   time.Time
}

func New(id string, notifier Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		id:       id,
		notifier: notifier,
		log:      zap.NewNop().Sugar(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) ID() string   { return d.id }
func (d *Dispatcher) State() State { return d.state }
func (d *Dispatcher) Busy() bool   { return d.state == Submitting }

// Pending is the action awaiting confirmation or a response.
func (d *Dispatcher) Pending() (Action, bool) {
	if d.state == Idle {
		return Action{}, false
	}
	return d.pending, true
}

// Since reports how long the current request has been running.
func (d *Dispatcher) Since() time.Duration {
	if d.state != Submitting {
		return 0
	}
	return time.Since(d.started)
}

// Request starts an action. Destructive actions stop at Confirming and send
// nothing; others are submitted right away. Returns false when the dispatcher
// is not idle.
func (d *Dispatcher) Request(action Action) (tea.Cmd, bool) {
	if d.state != Idle || action.Run == nil {
		return nil, false
	}
	d.pending = action
	if action.Destructive {
		d.state = Confirming
		return nil, true
	}
	return d.submit(), true
}

func (d *Dispatcher) Confirm() tea.Cmd {
	if d.state != Confirming {
		return nil
	}
	return d.submit()
}

func (d *Dispatcher) Cancel() bool {
	if d.state != Confirming {
		return false
	}
	d.reset()
	return true
}

func (d *Dispatcher) submit() tea.Cmd {
	d.state = Submitting
	d.requestID = uuid.NewString()
	d.started = time.Now()

	action := d.pending
	msg := ResultMsg{
		DispatcherID: d.id,
		RequestID:    d.requestID,
		Action:       action.Name,
		Targets:      append([]string(nil), action.Targets...),
	}
	timeout := d.timeout
	started := d.started
	d.log.Debugw("mutation submitted", "dispatcher", d.id, "action", action.Name, "targets", action.Targets, "request_id", msg.RequestID)

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		msg.Err = action.Run(ctx)
		msg.Elapsed = time.Since(started)
		return msg
	}
}

// Resolve applies a finished request and sends its notification. Results for
// another dispatcher or an older request are ignored.
func (d *Dispatcher) Resolve(msg ResultMsg) Outcome {
	if msg.DispatcherID != d.id || d.state != Submitting || msg.RequestID != d.requestID {
		return Outcome{}
	}
	action := d.pending
	d.reset()

	out := Outcome{
		Handled: true,
		Action:  action.Name,
		Targets: msg.Targets,
		Err:     msg.Err,
		Elapsed: msg.Elapsed,
	}
	if msg.Err != nil {
		d.log.Errorw("mutation failed",
			"dispatcher", d.id,
			"action", action.Name,
			"targets", msg.Targets,
			"elapsed", msg.Elapsed,
			"error", msg.Err,
		)
		title := action.Failure
		if title == "" {
			title = "Error"
		}
		d.notify(Notification{Kind: KindError, Title: title, Message: ErrorMessage(msg.Err)})
		return out
	}

	d.log.Infow("mutation succeeded", "dispatcher", d.id, "action", action.Name, "targets", msg.Targets, "elapsed", msg.Elapsed)
	d.notify(Notification{Kind: KindSuccess, Title: "Success", Message: action.Success})
	out.Succeeded = true
	out.Refresh = action.Destructive
	return out
}

func (d *Dispatcher) reset() {
	d.state = Idle
	d.pending = Action{}
	d.requestID = ""
	d.started = time.Time{}
}

func (d *Dispatcher) notify(n Notification) {
	if d.notifier != nil {
		d.notifier.Notify(n)
	}
}

// ErrorMessage prefers the message the server wrote over the wrapped error
// chain.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var sm ServerMessage
	if errors.As(err, &sm) {
		if msg := sm.ServerMessage(); msg != "" {
			return msg
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "the request timed out"
	}
	return err.Error()
}
