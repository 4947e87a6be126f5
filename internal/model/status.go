package model

// statusTransitions lists the allowed status moves. Soft delete is orthogonal
// and governed by DeletedAt, not by this table.
var statusTransitions = map[Status][]Status{
	StatusLoading:   {StatusUnmatched, StatusError, StatusIgnore},
	StatusUnmatched: {StatusMatched, StatusIgnore, StatusError},
	StatusMatched:   {StatusUnmatched},
	StatusIgnore:    {StatusUnmatched},
	StatusError:     {StatusUnmatched, StatusIgnore, StatusLoading},
}

// CanTransition reports whether a document may move from one status to
// another.
func CanTransition(from, to Status) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
