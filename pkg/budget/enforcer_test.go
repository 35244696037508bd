package budget

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/galen-ai/galen/pkg/models"
	"github.com/galen-ai/galen/pkg/tracker"
)

func setup(t *testing.T) (tracker.Tracker, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "budget_test.db")
	tr, err := tracker.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr, context.Background()
}

func TestCheckUnderBudget(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Domain: "topic", Model: "gpt-4o-mini",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Domain: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	if err := e.Check(ctx, "topic", "gpt-4o-mini"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckExceeded(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Domain: "topic", Model: "gpt-4o-mini",
		PromptTokens: 500, CompletionTokens: 600, TotalTokens: 1100,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Domain: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	err := e.Check(ctx, "topic", "gpt-4o-mini")
	if err == nil {
		t.Fatal("expected budget exceeded error")
	}
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded, got %v", err)
	}
}

func TestCheckModelScopedPolicy(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Domain: "topic", Model: "gpt-4o",
		PromptTokens: 900, CompletionTokens: 200, TotalTokens: 1100,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Domain: "topic", Model: "gpt-4o", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	// The expensive model is capped.
	if err := e.Check(ctx, "topic", "gpt-4o"); !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded, got %v", err)
	}
	// A different model is not covered by the policy.
	if err := e.Check(ctx, "topic", "gpt-4o-mini"); err != nil {
		t.Errorf("expected no error for unscoped model, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Domain: "topic", Model: "gpt-4o-mini",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Domain: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	statuses, err := e.Status(ctx, "topic")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Used != 150 {
		t.Errorf("expected 150 used, got %d", statuses[0].Used)
	}
	if statuses[0].Remaining != 850 {
		t.Errorf("expected 850 remaining, got %d", statuses[0].Remaining)
	}
}

func TestSpecificDomainPolicy(t *testing.T) {
	tr, ctx := setup(t)

	e := New([]models.BudgetPolicy{
		{Domain: "interactions", MaxTokens: 500, Period: models.BudgetDaily},
		{Domain: "*", MaxTokens: 10000, Period: models.BudgetDaily},
	}, tr)

	// topic should only match the wildcard
	statuses, err := e.Status(ctx, "topic")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status for topic, got %d", len(statuses))
	}

	// interactions should match both
	statuses, err = e.Status(ctx, "interactions")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses for interactions, got %d", len(statuses))
	}
}
