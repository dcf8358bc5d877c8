package status

// statusRank orders collection statuses for the monotonic update rule.
// SUCCESS and FAILED share the top rank: both are terminal and neither
// outranks the other. Unknown statuses rank 0 and lose to everything.
var statusRank = map[string]int{
	"INITIATED":  1,
	"PENDING":    2,
	"PROCESSING": 3,
	"SUCCESS":    4,
	"FAILED":     4,
}

// Rank returns the lattice rank of a status, 0 if unknown.
func Rank(s string) int {
	return statusRank[s]
}

// IsTerminal reports whether a status ends the collection lifecycle.
func IsTerminal(s string) bool {
	return s == Success || s == Failed
}

// ShouldUpdate decides whether proposed may replace current.
//
// Re-applying the same status is always allowed so retried webhooks
// stay idempotent. allowOverride bypasses every guard and is reserved
// for manual reconciliation. Otherwise a terminal status is sticky,
// and a non-terminal one only moves forward in rank; equal rank is
// allowed so e.g. a PENDING collection may be re-marked PENDING via a
// differently-spelled provider status.
func ShouldUpdate(current, proposed string, allowOverride bool) bool {
	if current == proposed {
		return true
	}
	if allowOverride {
		return true
	}
	if IsTerminal(current) {
		return false
	}
	return Rank(proposed) >= Rank(current)
}

// UpdateFields returns the column set for an admitted transition, or
// nil when the transition is rejected. Callers persist exactly what is
// returned, nothing more.
func UpdateFields(current, proposed string, allowOverride bool) (map[string]any, bool) {
	if !ShouldUpdate(current, proposed, allowOverride) {
		return nil, false
	}
	return map[string]any{"status": proposed}, true
}
