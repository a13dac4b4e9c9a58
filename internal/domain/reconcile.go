package domain

import "sort"

// ReconcileResult is the outcome of diffing submitted users against an
// expected roster for one reporting period.
type ReconcileResult struct {
	Summaries []UserSummary // users who submitted, sorted by username
	Missing   []string      // roster members with no submission, sorted
}

// SummarizeByUser groups entries per user, keeping the username snapshot and
// the ordered entry list, and computes exact totals. Output is sorted by
// username (then user ID) for stable report rendering.
func SummarizeByUser(entries []TimesheetEntry) []UserSummary {
	byUser := make(map[string]*UserSummary)
	var order []string
	for _, e := range entries {
		s, ok := byUser[e.UserID]
		if !ok {
			s = &UserSummary{UserID: e.UserID, Username: e.Username}
			byUser[e.UserID] = s
			order = append(order, e.UserID)
		}
		s.Entries = append(s.Entries, e)
	}
	out := make([]UserSummary, 0, len(order))
	for _, id := range order {
		s := byUser[id]
		s.Total = TotalHours(s.Entries)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// MissingUsers computes roster − submitted − exempted. The result is sorted
// lexicographically so repeated reconciliations are reproducible.
func MissingUsers(roster, submitted, exempted []string) []string {
	drop := make(map[string]struct{}, len(submitted)+len(exempted))
	for _, id := range submitted {
		drop[id] = struct{}{}
	}
	for _, id := range exempted {
		drop[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(roster))
	var missing []string
	for _, id := range roster {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := drop[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
