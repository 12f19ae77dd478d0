// Package report renders a coverage bundle. Every format implements
// Formatter and is driven through the same three steps: VisitInfo,
// VisitBundle and VisitEnd.
package report

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
)

// Formatter writes one report format.
type Formatter interface {
	// VisitInfo writes the session information and is called first.
	VisitInfo(sessions []execdata.SessionInfo, contents []*execdata.ExecutionData) error
	// VisitBundle writes the coverage structure of the bundle.
	VisitBundle(bundle *coverage.Bundle, locator SourceLocator) error
	// VisitEnd flushes and publishes the output. Nothing is written
	// afterwards.
	VisitEnd() error
}

// Aborter is implemented by formatters which have to clean up staged
// output if rendering fails before VisitEnd.
type Aborter interface {
	Abort() error
}

type State int

const (
	StateCreated State = iota
	StateInfoWritten
	StateStructureWritten
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInfoWritten:
		return "info written"
	case StateStructureWritten:
		return "structure written"
	case StateFinalized:
		return "finalized"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Visitor enforces the order of the visit calls on a formatter. Calling
// a method out of order is a programming error and panics.
type Visitor struct {
	formatter Formatter
	state     State
}

func NewVisitor(f Formatter) *Visitor {
	return &Visitor{formatter: f}
}

func (v *Visitor) State() State {
	return v.state
}

func (v *Visitor) VisitInfo(sessions []execdata.SessionInfo, contents []*execdata.ExecutionData) error {
	v.advance(StateCreated, StateInfoWritten)
	return v.formatter.VisitInfo(sessions, contents)
}

func (v *Visitor) VisitBundle(bundle *coverage.Bundle, locator SourceLocator) error {
	v.advance(StateInfoWritten, StateStructureWritten)
	return v.formatter.VisitBundle(bundle, locator)
}

func (v *Visitor) VisitEnd() error {
	v.advance(StateStructureWritten, StateFinalized)
	return v.formatter.VisitEnd()
}

func (v *Visitor) advance(from, to State) {
	if v.state != from {
		panic(fmt.Sprintf("report visitor: can't move to state %q in state %q", to, v.state))
	}
	v.state = to
}

// Render drives f through all three steps. If a step fails, the
// output staged so far is discarded.
func Render(f Formatter, snapshot *execdata.Snapshot, bundle *coverage.Bundle, locator SourceLocator) (err error) { // nolint:nonamedreturns
	defer func() {
		if err == nil {
			return
		}
		if a, ok := f.(Aborter); ok {
			if abortErr := a.Abort(); abortErr != nil {
				err = errors.WithMessagef(err, "cleanup failed: %v", abortErr)
			}
		}
	}()

	v := NewVisitor(f)
	err = v.VisitInfo(snapshot.Sessions, snapshot.Store.Contents())
	if err != nil {
		return err
	}
	err = v.VisitBundle(bundle, locator)
	if err != nil {
		return err
	}
	return v.VisitEnd()
}
