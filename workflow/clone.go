package workflow

// clone returns a deep copy of s suitable for observability snapshots. The
// struct graph is small, shallow, and fully known at compile time, so a
// hand-written field-by-field copy is both faster and more obviously correct
// than a reflection-based deep copy (see DESIGN.md for why this stays
// stdlib-only).
func (s *State) clone() *State {
	if s == nil {
		return nil
	}
	out := *s

	out.Context = cloneAnyMap(s.Context)
	out.Outcome = cloneAnyMap(s.Outcome)

	out.Tasks = make([]*Task, len(s.Tasks))
	for i, t := range s.Tasks {
		tc := *t
		tc.Dependencies = append([]string(nil), t.Dependencies...)
		out.Tasks[i] = &tc
	}

	out.Messages = append([]Message(nil), s.Messages...)
	out.Decisions = append([]Decision(nil), s.Decisions...)
	out.Blockers = append([]Blocker(nil), s.Blockers...)
	out.NextActions = append([]string(nil), s.NextActions...)

	return &out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
