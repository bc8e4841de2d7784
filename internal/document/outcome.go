package document

import "fmt"

// OutcomeKind is the closed set of per-document transition results.
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeNotFound      OutcomeKind = "not_found"
	OutcomeConflict      OutcomeKind = "conflict"
	OutcomeRegistryError OutcomeKind = "registry_error"
)

// Outcome reports what happened to one document during a transition call.
type Outcome struct {
	ID      int64
	Kind    OutcomeKind
	Message string
}

// Success reports a committed transition.
func Success(id int64) Outcome {
	return Outcome{ID: id, Kind: OutcomeSuccess}
}

// NotFound reports a missing document.
func NotFound(id int64) Outcome {
	return Outcome{ID: id, Kind: OutcomeNotFound, Message: "Document not found"}
}

// Conflict reports a predecessor mismatch or a lost version race.
func Conflict(id int64, format string, args ...any) Outcome {
	return Outcome{ID: id, Kind: OutcomeConflict, Message: fmt.Sprintf(format, args...)}
}

// RegistryError reports a rolled back unit whose side-effect write failed.
func RegistryError(id int64, message string) Outcome {
	return Outcome{ID: id, Kind: OutcomeRegistryError, Message: message}
}

// OK reports whether the transition committed.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// Counts aggregates outcome kinds for a batch. Errors counts registry_error.
type Counts struct {
	Total    int
	Success  int
	NotFound int
	Conflict int
	Errors   int
}

// Tally derives aggregate counts from outcomes.
func Tally(outcomes []Outcome) Counts {
	counts := Counts{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeSuccess:
			counts.Success++
		case OutcomeNotFound:
			counts.NotFound++
		case OutcomeConflict:
			counts.Conflict++
		case OutcomeRegistryError:
			counts.Errors++
		}
	}
	return counts
}
