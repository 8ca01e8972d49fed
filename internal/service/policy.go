package service

import "github.com/iliyamo/event-registration/internal/model"

// PolicyRule is the resolved participation policy of an event: the mode
// plus the number of candidate selections an applicant may hold.
type PolicyRule struct {
	Mode  model.Policy `json:"mode"`
	Limit int          `json:"limit"`
}

// ResolvePolicy reports the participation mode and selection limit for
// an event. The mutual exclusion of multi_date and multi_candidate is
// asserted when the event is created by the admin collaborator; the
// resolver only reports what is stored, it does not re-validate.
func ResolvePolicy(ev *model.Event) PolicyRule {
	return PolicyRule{Mode: ev.Policy, Limit: ev.SelectionLimit()}
}
