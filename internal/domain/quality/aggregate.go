package quality

// Aggregate is the recomputed checklist state derived from the full current
// set of checks. Recomputation always starts from scratch rather than
// patching the previous aggregate, so a stale intermediate value can never
// survive a race between two check updates.
type Aggregate struct {
	Status       ChecklistStatus
	OverallScore *float64
}

// Recompute derives the aggregate from the given checks.
//
// OverallScore is the arithmetic mean over all scored checks, nil when no
// check has a score. Status precedence:
//
//  1. passed: at least one required applicable check exists and every
//     required check that applies (is_required and not n_a) has passed
//  2. failed: any check failed
//  3. in_progress: any check is in progress
//  4. pending: otherwise
func Recompute(checks []Check) Aggregate {
	var agg Aggregate

	var sum float64
	scored := 0
	requiredApplicable := 0
	requiredPassed := 0
	anyFailed := false
	anyInProgress := false

	for i := range checks {
		c := &checks[i]
		if c.Score != nil {
			sum += *c.Score
			scored++
		}
		if c.IsRequired && c.Status != CheckNotApplicable {
			requiredApplicable++
			if c.Status == CheckPassed {
				requiredPassed++
			}
		}
		switch c.Status {
		case CheckFailed:
			anyFailed = true
		case CheckInProgress:
			anyInProgress = true
		}
	}

	if scored > 0 {
		mean := sum / float64(scored)
		agg.OverallScore = &mean
	}

	switch {
	case requiredApplicable > 0 && requiredPassed == requiredApplicable:
		agg.Status = ChecklistPassed
	case anyFailed:
		agg.Status = ChecklistFailed
	case anyInProgress:
		agg.Status = ChecklistInProgress
	default:
		agg.Status = ChecklistPending
	}

	return agg
}
