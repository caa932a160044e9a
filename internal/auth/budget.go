package auth

import (
	"sync"
	"time"

	apperrors "github.com/askgraph/askgraph/internal/errors"
)

// TokenBudget tracks one user's model token usage for the current UTC day.
type TokenBudget struct {
	UserID     string    `json:"user_id"`
	DailyLimit int64     `json:"daily_limit"`
	Used       int64     `json:"used"`
	Day        time.Time `json:"day"`
}

// BudgetManager enforces daily model token budgets per user. Users without a
// budget are unlimited. The day rolls over at midnight UTC.
type BudgetManager struct {
	budgets map[string]*TokenBudget
	mu      sync.Mutex
}

// NewBudgetManager creates an empty budget manager.
func NewBudgetManager() *BudgetManager {
	return &BudgetManager{
		budgets: make(map[string]*TokenBudget),
	}
}

// SetLimit sets or updates a user's daily token limit. A limit of zero
// removes the budget.
func (bm *BudgetManager) SetLimit(userID string, dailyLimit int64) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if dailyLimit <= 0 {
		delete(bm.budgets, userID)
		return
	}

	budget, exists := bm.budgets[userID]
	if !exists {
		budget = &TokenBudget{UserID: userID, Day: utcDay(time.Now())}
		bm.budgets[userID] = budget
	}
	budget.DailyLimit = dailyLimit
}

// Record adds tokens to a user's daily usage, rejecting the spend when it
// would exceed the limit.
func (bm *BudgetManager) Record(userID string, tokens int64) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	budget, exists := bm.budgets[userID]
	if !exists {
		return nil
	}

	bm.rollover(budget)

	if budget.Used+tokens > budget.DailyLimit {
		return apperrors.NewBudgetExceededError(budget.Used, budget.DailyLimit)
	}

	budget.Used += tokens
	return nil
}

// Charge records tokens against a user's daily usage unconditionally. Spend
// is only known after the model call, so a request in flight can overshoot
// the limit; Check blocks the next one.
func (bm *BudgetManager) Charge(userID string, tokens int64) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	budget, exists := bm.budgets[userID]
	if !exists {
		return
	}

	bm.rollover(budget)
	budget.Used += tokens
}

// Check reports whether a spend of the given size would fit, without
// recording it.
func (bm *BudgetManager) Check(userID string, tokens int64) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	budget, exists := bm.budgets[userID]
	if !exists {
		return nil
	}

	bm.rollover(budget)

	if budget.Used+tokens > budget.DailyLimit {
		return apperrors.NewBudgetExceededError(budget.Used, budget.DailyLimit)
	}
	return nil
}

// Usage returns a copy of a user's budget, or nil when none is set.
func (bm *BudgetManager) Usage(userID string) *TokenBudget {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	budget, exists := bm.budgets[userID]
	if !exists {
		return nil
	}

	bm.rollover(budget)
	budgetCopy := *budget
	return &budgetCopy
}

func (bm *BudgetManager) rollover(budget *TokenBudget) {
	today := utcDay(time.Now())
	if !budget.Day.Equal(today) {
		budget.Day = today
		budget.Used = 0
	}
}

func utcDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
