/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"strings"
	"sync"
)

// CompositeUnit starts and stops a group of units together.
type CompositeUnit struct {
	Units []Unit
}

var (
	_ Unit              = (*CompositeUnit)(nil)
	_ MetricsRegisterer = (*CompositeUnit)(nil)
)

// NewCompositeUnit creates a new CompositeUnit.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return &CompositeUnit{Units: units}
}

// Start starts all units concurrently and blocks until every Start call returns or any unit fails.
// When a unit fails, the rest are stopped non-gracefully and a *CompositeUnitError with
// the start and stop errors is sent to fatalErr.
func (cu *CompositeUnit) Start(fatalErr chan<- error) {
	unitErrs := make(chan error, len(cu.Units))
	var wg sync.WaitGroup
	wg.Add(len(cu.Units))
	for _, u := range cu.Units {
		go func(u Unit) {
			defer wg.Done()
			errCh := make(chan error, 1)
			u.Start(errCh)
			select {
			case err := <-errCh:
				unitErrs <- err
			default:
			}
		}(u)
	}

	allStarted := make(chan struct{})
	go func() {
		wg.Wait()
		close(allStarted)
	}()

	var firstErr error
	select {
	case <-allStarted:
		select {
		case firstErr = <-unitErrs:
		default:
			return
		}
	case firstErr = <-unitErrs:
	}

	errs := []error{firstErr}
	if stopErr := cu.Stop(false); stopErr != nil {
		errs = append(errs, stopErr.(*CompositeUnitError).UnitErrors...)
	}
	<-allStarted
drain:
	for {
		select {
		case err := <-unitErrs:
			errs = append(errs, err)
		default:
			break drain
		}
	}
	fatalErr <- &CompositeUnitError{UnitErrors: errs}
}

// Stop stops all units concurrently and returns a *CompositeUnitError if any of them fails.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	stopErrs := make([]error, len(cu.Units))
	var wg sync.WaitGroup
	wg.Add(len(cu.Units))
	for i, u := range cu.Units {
		go func(i int, u Unit) {
			defer wg.Done()
			stopErrs[i] = u.Stop(gracefully)
		}(i, u)
	}
	wg.Wait()

	var errs []error
	for _, err := range stopErrs {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		return &CompositeUnitError{UnitErrors: errs}
	}
	return nil
}

// MustRegisterMetrics registers metrics of all units that own them.
func (cu *CompositeUnit) MustRegisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.MustRegisterMetrics()
		}
	}
}

// UnregisterMetrics unregisters metrics of all units that own them.
func (cu *CompositeUnit) UnregisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.UnregisterMetrics()
		}
	}
}

// CompositeUnitError contains errors of the units of a CompositeUnit.
type CompositeUnitError struct {
	UnitErrors []error
}

// Error joins messages of the unit errors.
func (e *CompositeUnitError) Error() string {
	msgs := make([]string, 0, len(e.UnitErrors))
	for _, err := range e.UnitErrors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
