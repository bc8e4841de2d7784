package document

import (
	"fmt"
	"time"
)

// Transition names one forward lifecycle move.
type Transition struct {
	Name     string
	From     Status
	To       Status
	Action   Action
	Registry bool
}

var (
	// Submit moves a draft into review.
	Submit = Transition{Name: "submit", From: StatusDraft, To: StatusSubmitted, Action: ActionSubmit}
	// Approve finalizes a submitted document and records it in the approval registry.
	Approve = Transition{Name: "approve", From: StatusSubmitted, To: StatusApproved, Action: ActionApprove, Registry: true}
)

// TransitionByName resolves "submit" or "approve".
func TransitionByName(name string) (Transition, error) {
	switch name {
	case Submit.Name:
		return Submit, nil
	case Approve.Name:
		return Approve, nil
	default:
		return Transition{}, fmt.Errorf("%w: %q", ErrInvalidTransition, name)
	}
}

// Comment returns the history note written for the transition.
func (t Transition) Comment(actor string) string {
	switch t.Action {
	case ActionSubmit:
		return "Submitted by " + actor
	case ActionApprove:
		return "Approved by " + actor
	default:
		return string(t.Action) + " by " + actor
	}
}

// TransitionWrite is the complete atomic unit a store must apply: one
// conditional status update keyed on ExpectedVersion, one history append, and
// an optional approval registry insert.
type TransitionWrite struct {
	DocumentID      int64
	ExpectedVersion int64
	From            Status
	To              Status
	History         HistoryEntry
	Approval        *ApprovalEntry
	At              time.Time
}

// NewTransitionWrite builds the write for doc moving along t on behalf of actor.
func NewTransitionWrite(doc *Document, t Transition, actor string, at time.Time) TransitionWrite {
	write := TransitionWrite{
		DocumentID:      doc.ID,
		ExpectedVersion: doc.Version,
		From:            t.From,
		To:              t.To,
		History: HistoryEntry{
			DocumentID:  doc.ID,
			PerformedBy: actor,
			Action:      t.Action,
			Comment:     t.Comment(actor),
			CreatedAt:   at,
		},
		At: at,
	}
	if t.Registry {
		write.Approval = &ApprovalEntry{
			DocumentID: doc.ID,
			ApprovedBy: actor,
			ApprovedAt: at,
		}
	}
	return write
}
