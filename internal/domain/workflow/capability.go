package workflow

import (
	"fmt"

	"github.com/opsdeck/reviewflow/internal/domain"
)

// Capabilities maps an actor category to the decision actions it may take.
// The table is injected into the orchestrator so deployments can tighten or
// loosen who may reject or send work back without touching engine logic.
type Capabilities map[ApproverCategory][]Action

// DefaultCapabilities returns the standard rule table: every reviewer
// category may approve or reject; sending a version back for rework is
// reserved for client-facing and supervisory categories.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		CategoryClient:       {ActionApprove, ActionReject, ActionRequestRevision},
		CategoryEmployee:     {ActionApprove, ActionReject},
		CategoryManager:      {ActionApprove, ActionReject, ActionRequestRevision},
		CategoryDirector:     {ActionApprove, ActionReject, ActionRequestRevision},
		CategorySpecificUser: {ActionApprove, ActionReject, ActionRequestRevision},
	}
}

// Allows reports whether the category may take the given action. An empty
// category is treated as the level's own required category by callers; an
// unknown category is denied.
func (c Capabilities) Allows(category ApproverCategory, action Action) bool {
	for _, a := range c[category] {
		if a == action {
			return true
		}
	}
	return false
}

// Check returns a validation error when the category may not take the action.
func (c Capabilities) Check(category ApproverCategory, action Action) error {
	if !c.Allows(category, action) {
		return fmt.Errorf("category %q may not %s: %w", category, action, domain.ErrValidation)
	}
	return nil
}
