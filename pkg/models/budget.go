package models

// BudgetPeriod defines the time window for a budget policy.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetPolicy defines max tokens per domain per period. Domain "*"
// applies to every domain; an empty Model applies to every model.
type BudgetPolicy struct {
	Domain    string       `json:"domain" yaml:"domain"`
	Model     string       `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens int64        `json:"max_tokens" yaml:"max_tokens"`
	Period    BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current usage against a policy.
type BudgetStatus struct {
	Policy    BudgetPolicy `json:"policy"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
}
