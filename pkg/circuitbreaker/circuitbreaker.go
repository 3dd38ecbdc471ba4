package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the current circuit breaker state.
type CircuitState int

const (
	// Closed lets every call through.
	Closed CircuitState = iota
	// Open rejects calls until the recovery timeout passes.
	Open
	// HalfOpen lets calls through to probe whether the dependency is back.
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls and opens the circuit after repeated failures.
type CircuitBreaker interface {
	Call(func() error) error
	State() CircuitState
	Metrics() CircuitBreakerMetrics
	Reset()
}

type Config struct {
	FailureThreshold int           // consecutive failures before opening
	RecoveryTimeout  time.Duration // time spent Open before probing
	SuccessThreshold int           // probe successes needed to close again

	// IsFailure decides whether an error counts against the circuit. Errors it
	// rejects are returned to the caller and otherwise count as a success.
	// nil counts every error.
	IsFailure func(error) bool

	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(from, to CircuitState)
}

func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 3,
	}
}

// CircuitBreakerMetrics is a snapshot of the breaker.
type CircuitBreakerMetrics struct {
	State        CircuitState
	FailureCount int
	SuccessCount int
	Rejected     uint64
	LastFailure  time.Time
	NextAttempt  time.Time
}

type transition struct {
	from, to CircuitState
}

type circuitBreaker struct {
	config *Config
	now    func() time.Time

	mutex       sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	rejected    uint64
	lastFailure time.Time
	nextAttempt time.Time
}

// NewCircuitBreaker applies DefaultConfig when config is nil and fills zero
// thresholds from it.
func NewCircuitBreaker(config *Config) CircuitBreaker {
	defaults := DefaultConfig()
	cfg := defaults
	if config != nil {
		copied := *config
		cfg = &copied
		if cfg.FailureThreshold <= 0 {
			cfg.FailureThreshold = defaults.FailureThreshold
		}
		if cfg.RecoveryTimeout <= 0 {
			cfg.RecoveryTimeout = defaults.RecoveryTimeout
		}
		if cfg.SuccessThreshold <= 0 {
			cfg.SuccessThreshold = defaults.SuccessThreshold
		}
	}

	return &circuitBreaker{
		config: cfg,
		now:    time.Now,
		state:  Closed,
	}
}

func (cb *circuitBreaker) Call(fn func() error) error {
	cb.mutex.Lock()
	allowed, moved := cb.admit()
	cb.mutex.Unlock()
	cb.notify(moved)

	if !allowed {
		return ErrCircuitOpen
	}

	// fn runs without the lock held.
	err := fn()

	cb.mutex.Lock()
	if err != nil && cb.counts(err) {
		moved = cb.recordFailure()
	} else {
		moved = cb.recordSuccess()
	}
	cb.mutex.Unlock()
	cb.notify(moved)

	return err
}

func (cb *circuitBreaker) counts(err error) bool {
	return cb.config.IsFailure == nil || cb.config.IsFailure(err)
}

func (cb *circuitBreaker) admit() (bool, *transition) {
	var moved *transition
	if cb.state == Open && cb.now().After(cb.nextAttempt) {
		moved = cb.setState(HalfOpen)
		cb.successes = 0
	}
	if cb.state == Open {
		cb.rejected++
		return false, moved
	}
	return true, moved
}

func (cb *circuitBreaker) recordFailure() *transition {
	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case Closed:
		if cb.failures >= cb.config.FailureThreshold {
			return cb.open()
		}
	case HalfOpen:
		return cb.open()
	}
	return nil
}

func (cb *circuitBreaker) recordSuccess() *transition {
	cb.failures = 0

	if cb.state != HalfOpen {
		return nil
	}
	cb.successes++
	if cb.successes < cb.config.SuccessThreshold {
		return nil
	}
	cb.successes = 0
	return cb.setState(Closed)
}

func (cb *circuitBreaker) open() *transition {
	cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
	return cb.setState(Open)
}

func (cb *circuitBreaker) setState(to CircuitState) *transition {
	if cb.state == to {
		return nil
	}
	t := &transition{from: cb.state, to: to}
	cb.state = to
	return t
}

func (cb *circuitBreaker) notify(t *transition) {
	if t != nil && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(t.from, t.to)
	}
}

func (cb *circuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mutex.Lock()
	moved := cb.setState(Closed)
	cb.failures = 0
	cb.successes = 0
	cb.mutex.Unlock()
	cb.notify(moved)
}

func (cb *circuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return CircuitBreakerMetrics{
		State:        cb.state,
		FailureCount: cb.failures,
		SuccessCount: cb.successes,
		Rejected:     cb.rejected,
		LastFailure:  cb.lastFailure,
		NextAttempt:  cb.nextAttempt,
	}
}
