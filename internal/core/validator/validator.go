package validator

import (
	"context"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/domain"
)

// Validator checks included plan entries against local storage
type Validator interface {
	Validate(ctx context.Context, plan *domain.TransferPlan) []domain.Validation
}

// DefaultValidator compares existence and size through a LocalProbe.
// It never mutates anything and never fails: uncertain entries become missing.
type DefaultValidator struct {
	Probe adapter.LocalProbe
}

// New creates a validator over a probe
func New(probe adapter.LocalProbe) *DefaultValidator {
	return &DefaultValidator{Probe: probe}
}

// Validate returns one validation per included entry, in plan order.
// A cancelled context marks the remaining entries missing.
func (v *DefaultValidator) Validate(ctx context.Context, plan *domain.TransferPlan) []domain.Validation {
	writers := lastWriters(plan)
	out := make([]domain.Validation, 0, plan.Stats.Included)

	for i, e := range plan.Entries {
		if !e.Included {
			continue
		}

		res := domain.Validation{
			Entry:        e,
			ExpectedSize: e.Entry.Size,
			Verdict:      domain.VerdictMissing,
		}

		switch {
		case ctx.Err() != nil:
			res.Err = ctx.Err()
		case writers[e.LocalPath] != i:
			res.Shadowed = true
		default:
			stat, err := v.Probe.Stat(e.LocalPath)
			res.Err = err
			if err == nil {
				res.Verdict = Compare(e.Entry.Size, stat)
				res.ActualSize = stat.Size
			}
		}

		out = append(out, res)
	}

	return out
}

// Compare derives a verdict from an expected size and a probe result
func Compare(expected int64, stat adapter.LocalStat) domain.Verdict {
	if !stat.Exists {
		return domain.VerdictMissing
	}
	if stat.Size != expected {
		return domain.VerdictSizeMismatch
	}
	return domain.VerdictValid
}

// lastWriters maps each local path to the index of the last included entry
// writing it
func lastWriters(plan *domain.TransferPlan) map[string]int {
	writers := make(map[string]int, plan.Stats.Included)
	for i, e := range plan.Entries {
		if e.Included {
			writers[e.LocalPath] = i
		}
	}
	return writers
}

// Summary counts verdicts
type Summary struct {
	Total        int
	Valid        int
	Missing      int
	SizeMismatch int

	// Shadowed is the part of Missing overwritten by a colliding entry
	Shadowed int
}

// Summarize counts validations by verdict
func Summarize(validations []domain.Validation) Summary {
	s := Summary{Total: len(validations)}
	for _, v := range validations {
		switch v.Verdict {
		case domain.VerdictValid:
			s.Valid++
		case domain.VerdictMissing:
			s.Missing++
			if v.Shadowed {
				s.Shadowed++
			}
		case domain.VerdictSizeMismatch:
			s.SizeMismatch++
		}
	}
	return s
}

// AllValid reports whether every validation is valid (and there is at least one)
func (s Summary) AllValid() bool {
	return s.Total > 0 && s.Valid == s.Total
}
