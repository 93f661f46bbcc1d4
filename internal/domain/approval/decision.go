package approval

import "strings"

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decision is either Approve or Reject; each carries only its own payload.
type Decision interface {
	Action() Action
	validate() error
}

type Approve struct {
	Note string
}

func (Approve) Action() Action  { return ActionApprove }
func (Approve) validate() error { return nil }

type Reject struct {
	Reason string
}

func (Reject) Action() Action { return ActionReject }

func (r Reject) validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return ErrMissingReason
	}
	return nil
}

// Validate checks the decision payload without touching any store.
func Validate(d Decision) error {
	if d == nil {
		return ErrUnknownAction
	}
	return d.validate()
}
