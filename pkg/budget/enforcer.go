package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/galen-ai/galen/pkg/models"
	"github.com/galen-ai/galen/pkg/tracker"
)

// ErrBudgetExceeded is returned when a generation would exceed the budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks token usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	tracker  tracker.Tracker
}

// New creates an Enforcer with the given policies and tracker.
func New(policies []models.BudgetPolicy, t tracker.Tracker) *Enforcer {
	return &Enforcer{policies: policies, tracker: t}
}

// Check returns ErrBudgetExceeded if the domain has exhausted any applicable policy.
func (e *Enforcer) Check(ctx context.Context, domain, model string) error {
	for _, p := range e.applicablePolicies(domain, model) {
		since := periodStart(p.Period)
		var used int64
		var err error
		if p.Model != "" {
			used, err = e.tracker.TotalByDomainAndModel(ctx, domain, p.Model, since)
		} else {
			used, err = e.tracker.TotalByDomain(ctx, domain, since)
		}
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxTokens {
			return ErrBudgetExceeded
		}
	}
	return nil
}

// Status returns the budget status for a domain across all applicable policies.
func (e *Enforcer) Status(ctx context.Context, domain string) ([]models.BudgetStatus, error) {
	policies := e.policiesForDomain(domain)
	statuses := make([]models.BudgetStatus, 0, len(policies))

	for _, p := range policies {
		since := periodStart(p.Period)
		var used int64
		var err error
		if p.Model != "" {
			used, err = e.tracker.TotalByDomainAndModel(ctx, domain, p.Model, since)
		} else {
			used, err = e.tracker.TotalByDomain(ctx, domain, since)
		}
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxTokens - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

// policiesForDomain returns all policies matching a domain (ignoring model filter).
func (e *Enforcer) policiesForDomain(domain string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Domain == "*" || p.Domain == domain {
			result = append(result, p)
		}
	}
	return result
}

func (e *Enforcer) applicablePolicies(domain, model string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Domain == "*" || p.Domain == domain {
			if p.Model == "" || p.Model == model {
				result = append(result, p)
			}
		}
	}
	return result
}

func periodStart(period models.BudgetPeriod) time.Time {
	now := time.Now().UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
