// Package reconcile tracks whether a draft's parent portfolio exists
// upstream and serialises profile submissions.
//
// A draft starts Unsaved. The first successful create moves it to Saved,
// exactly once. Children added while Unsaved keep their provisional tokens
// and are not migrated by the transition.
package reconcile

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
)

// State of the parent record.
type State int

const (
	Unsaved State = iota
	Saved
)

func (s State) String() string {
	if s == Saved {
		return "saved"
	}
	return "unsaved"
}

// Op is the upstream call a submission must make.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
)

// Submission is handed out by BeginSubmit. PortfolioID is set for updates.
type Submission struct {
	Op          Op
	PortfolioID string
}

var (
	ErrSubmitInFlight = fmt.Errorf("reconcile: profile submission already in flight: %w", domain.ErrConflict)
	ErrNoSubmission   = errors.New("reconcile: no submission in flight")
	ErrEmptyID        = errors.New("reconcile: empty portfolio id")
)

// Reconciler is safe for concurrent use.
type Reconciler struct {
	mu          sync.Mutex
	state       State
	portfolioID string
	inFlight    bool
}

// New returns a Reconciler in the Unsaved state.
func New() *Reconciler { return &Reconciler{} }

// Resume returns a Reconciler already Saved under id, for drafts loaded
// from an existing portfolio.
func Resume(id string) (*Reconciler, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	return &Reconciler{state: Saved, portfolioID: id}, nil
}

// BeginSubmit reserves the single submission slot and says whether to
// create or update.
func (r *Reconciler) BeginSubmit() (Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight {
		return Submission{}, ErrSubmitInFlight
	}
	r.inFlight = true

	if r.state == Saved {
		return Submission{Op: OpUpdate, PortfolioID: r.portfolioID}, nil
	}
	return Submission{Op: OpCreate}, nil
}

// Complete ends a successful submission. For a create, id is the server
// identity and the draft becomes Saved. For an update, id is ignored.
func (r *Reconciler) Complete(sub Submission, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFlight {
		return ErrNoSubmission
	}
	if sub.Op == OpCreate {
		if id == "" {
			r.inFlight = false
			return ErrEmptyID
		}
		// Guarded by the in-flight slot, so this runs at most once.
		if r.state == Unsaved {
			r.state = Saved
			r.portfolioID = id
		}
	}
	r.inFlight = false
	return nil
}

// Adopt moves an Unsaved draft to Saved under id, for a parent that was
// created elsewhere, e.g. by another replica sharing the draft. It reports
// whether the state changed. An outstanding submission stays outstanding;
// Rebase turns it into an update.
func (r *Reconciler) Adopt(id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Saved {
		return false, nil
	}
	r.state = Saved
	r.portfolioID = id
	return true, nil
}

// Rebase re-reads the operation for an outstanding submission: a create
// becomes an update once the parent exists.
func (r *Reconciler) Rebase(sub Submission) Submission {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Saved {
		return Submission{Op: OpUpdate, PortfolioID: r.portfolioID}
	}
	return sub
}

// Abort ends a failed submission. State is unchanged.
func (r *Reconciler) Abort() {
	r.mu.Lock()
	r.inFlight = false
	r.mu.Unlock()
}

// Mode reports the state and, when Saved, the server identity. Callers use
// it to choose the provisional or persisted child path.
func (r *Reconciler) Mode() (State, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.portfolioID
}

// InFlight reports whether a profile submission is outstanding.
func (r *Reconciler) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}
