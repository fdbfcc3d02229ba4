package forecast

import (
	"fmt"
	"strings"
	"time"
)

// Outcome classifies a flush.
type Outcome string

const (
	OutcomeNone    Outcome = "none"
	OutcomeAll     Outcome = "all"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// Result reports one batch save. Applied holds every change that was
// applied locally when the batch started; Saved are the ones committed and
// Failed the ones that were not, which the caller may roll back.
type Result struct {
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message"`
	Applied    []Change  `json:"applied_locally"`
	Saved      []Change  `json:"committed"`
	Failed     []Change  `json:"rollback"`
	Errors     []string  `json:"errors,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Rollback returns the changes applied locally but not committed.
func (r Result) Rollback() []Change { return r.Failed }

func newResult(applied, saved, failed []Change, errs []string, at time.Time) Result {
	r := Result{
		Applied:    applied,
		Saved:      saved,
		Failed:     failed,
		Errors:     errs,
		FinishedAt: at,
	}
	switch {
	case len(applied) == 0:
		r.Outcome = OutcomeNone
	case len(failed) == 0:
		r.Outcome = OutcomeAll
	case len(saved) == 0:
		r.Outcome = OutcomeFailed
	default:
		r.Outcome = OutcomePartial
	}
	r.Message = SummaryMessage(len(saved), len(failed), errs)
	return r
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// SummaryMessage renders the pt-BR status line shown after a flush.
// It returns "" when nothing was attempted.
func SummaryMessage(saved, failed int, errs []string) string {
	switch {
	case saved == 0 && failed == 0:
		return ""
	case failed == 0:
		return fmt.Sprintf("%d %s %s com sucesso!",
			saved, pluralize(saved, "alteração", "alterações"), pluralize(saved, "salva", "salvas"))
	case saved > 0:
		return fmt.Sprintf("%d %s %s. %d %s %s.",
			saved, pluralize(saved, "alteração", "alterações"), pluralize(saved, "salva", "salvas"),
			failed, pluralize(failed, "alteração", "alterações"), pluralize(failed, "falhou", "falharam"))
	case failed == 1:
		return "A operação falhou: " + strings.Join(errs, "; ")
	default:
		return fmt.Sprintf("Todas as %d operações falharam: %s", failed, strings.Join(errs, "; "))
	}
}
