package form

import (
	"context"
	"errors"

	"github.com/litescript/ls-sensitivity/internal/calc"
)

var (
	ErrInvalidForm = errors.New("form has invalid fields")
	ErrInFlight    = errors.New("a calculation is already in flight")
	// ErrStale is returned by Submit when the form changed while the
	// request was in flight and the response was dropped.
	ErrStale = errors.New("form changed before the response arrived")
)

// Calculator performs a backend calculation.
type Calculator interface {
	Calculate(ctx context.Context, op calc.Operation, req calc.Request) (calc.Result, error)
}

// Ticket identifies one submitted request.
type Ticket struct {
	Generation uint64
	Seq        uint64
	Operation  calc.Operation
	Request    calc.Request
}

// BeginSubmit snapshots the payload and marks a request in flight.
func (c *Controller) BeginSubmit() (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return Ticket{}, ErrInFlight
	}
	if !c.validLocked() {
		return Ticket{}, ErrInvalidForm
	}
	c.submitSeq++
	c.inFlight = true
	c.err = nil
	t := Ticket{
		Generation: c.generation,
		Seq:        c.submitSeq,
		Operation:  c.modes[GroupCalculation].Operation(),
		Request:    c.payloadLocked(),
	}
	c.logger.Debug("submit #%d %s with %d fields at generation %d", t.Seq, t.Operation, len(t.Request), t.Generation)
	return t, nil
}

// CompleteSubmit records the response for t. It reports false when the
// response was dropped because the form changed after t was issued.
func (c *Controller) CompleteSubmit(t Ticket, res calc.Result, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Seq == c.submitSeq {
		c.inFlight = false
	}
	if t.Generation != c.generation {
		c.logger.Debug("dropping response #%d: generation %d, form at %d", t.Seq, t.Generation, c.generation)
		return false
	}
	if err != nil {
		c.err = err
		c.computed = false
		c.result = nil
		return true
	}
	c.result = &res
	c.computed = true
	return true
}

// InFlight reports whether a request is outstanding.
func (c *Controller) InFlight() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inFlight
}

// Submit runs one calculation synchronously.
func (c *Controller) Submit(ctx context.Context, calculator Calculator) (calc.Result, error) {
	t, err := c.BeginSubmit()
	if err != nil {
		return calc.Result{}, err
	}
	res, err := calculator.Calculate(ctx, t.Operation, t.Request)
	if !c.CompleteSubmit(t, res, err) {
		return calc.Result{}, ErrStale
	}
	if err != nil {
		return calc.Result{}, err
	}
	return res, nil
}
