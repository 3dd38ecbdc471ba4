// Package submission drives one waitlist form: input checks, a single insert
// per submit, and the user-facing acknowledgment.
package submission

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/miniquinox/billsync/pkg/errors"
)

const (
	SuccessTitle       = "Welcome to the BillSync revolution!"
	SuccessDescription = "We'll be in touch soon with exclusive updates."
	FailureTitle       = "Something went wrong!"
	FallbackFailure    = "Please try again later."
)

// ErrSubmitInFlight is returned while a previous submit has not settled.
var ErrSubmitInFlight = errors.New("submission already in progress")

type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

type Entry struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company" validate:"required"`
}

// Inserter persists one entry.
type Inserter interface {
	Insert(ctx context.Context, entry Entry) error
}

// Notifier shows the outcome of a submit to the user.
type Notifier interface {
	Success(title, description string)
	Failure(title, description string)
}

var validate = validator.New()

type Form struct {
	inserter Inserter
	notifier Notifier

	// OnStateChange, when set, observes every transition. It runs without
	// the form lock held.
	OnStateChange func(State)

	mu     sync.Mutex
	state  State
	values Entry
}

func NewForm(inserter Inserter, notifier Notifier) *Form {
	return &Form{
		inserter: inserter,
		notifier: notifier,
		state:    Idle,
	}
}

func (f *Form) SetName(v string)    { f.set(func(e *Entry) { e.Name = v }) }
func (f *Form) SetEmail(v string)   { f.set(func(e *Entry) { e.Email = v }) }
func (f *Form) SetCompany(v string) { f.set(func(e *Entry) { e.Company = v }) }

func (f *Form) set(apply func(*Entry)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apply(&f.values)
}

func (f *Form) Values() Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Enabled reports whether the submit control accepts a press.
func (f *Form) Enabled() bool {
	return f.State() == Idle
}

// Validate applies the input rules: every field required, email well formed.
// Submit does not call it.
func (f *Form) Validate() []apperrors.ValidationErrorResponse {
	values := f.Values()
	return apperrors.FormatValidationErrors(validate.Struct(&values), &values)
}

// Submit performs exactly one insert of the current values. On success the
// fields are cleared; on failure they are kept. Either way the notifier hears
// about it and the form is Idle again before Submit returns.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.state = Submitting
	entry := f.values
	f.mu.Unlock()
	f.changed(Submitting)

	err := f.inserter.Insert(ctx, entry)

	if err != nil {
		f.notifier.Failure(FailureTitle, failureDescription(err))
	} else {
		f.mu.Lock()
		f.values = Entry{}
		f.mu.Unlock()
		f.notifier.Success(SuccessTitle, SuccessDescription)
	}

	f.mu.Lock()
	f.state = Idle
	f.mu.Unlock()
	f.changed(Idle)

	return err
}

func (f *Form) changed(s State) {
	if f.OnStateChange != nil {
		f.OnStateChange(s)
	}
}

func failureDescription(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return FallbackFailure
}
