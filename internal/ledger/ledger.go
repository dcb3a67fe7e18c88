package ledger

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go-crash/internal/config"
	"go-crash/internal/model"
)

// Ledger owns player balances and the append-only transaction log. Debits
// check sufficiency atomically with the mutation, so a balance can never go
// negative. Operations on different players proceed independently.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*account
	txs      []model.Transaction
}

type account struct {
	mu       sync.Mutex
	balances map[config.Currency]decimal.Decimal
}

func New() *Ledger {
	return &Ledger{
		accounts: make(map[string]*account),
	}
}

// Load seeds the ledger from persisted players. Called once at startup.
func (l *Ledger) Load(players []model.Player) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range players {
		balances := make(map[config.Currency]decimal.Decimal, len(p.Balances))
		for currency, amount := range p.Balances {
			balances[currency] = amount
		}

		l.accounts[p.PlayerID] = &account{balances: balances}
	}
}

func (l *Ledger) HasPlayer(playerID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.accounts[playerID]

	return ok
}

// Balances returns a copy of the player's per-currency balances.
func (l *Ledger) Balances(playerID string) (map[config.Currency]decimal.Decimal, error) {
	acc, err := l.account(playerID)
	if err != nil {
		return nil, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	balances := make(map[config.Currency]decimal.Decimal, len(acc.balances))
	for currency, amount := range acc.balances {
		balances[currency] = amount
	}

	return balances, nil
}

func (l *Ledger) Balance(playerID string, currency config.Currency) (decimal.Decimal, error) {
	acc, err := l.account(playerID)
	if err != nil {
		return decimal.Zero, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	return acc.balances[currency], nil
}

// Debit removes funds from the player's balance. The sufficiency check and
// the mutation happen under the same lock.
func (l *Ledger) Debit(playerID string, currency config.Currency, amount decimal.Decimal) error {
	const op = "ledger.Ledger.Debit"

	acc, err := l.account(playerID)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	balance := acc.balances[currency]
	if balance.LessThan(amount) {
		return fmt.Errorf("%s: %w", op, model.ErrInsufficientBalance)
	}

	acc.balances[currency] = balance.Sub(amount)

	return nil
}

// Credit adds funds to the player's balance.
func (l *Ledger) Credit(playerID string, currency config.Currency, amount decimal.Decimal) error {
	acc, err := l.account(playerID)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.balances[currency] = acc.balances[currency].Add(amount)

	return nil
}

// Append records a balance-affecting event. Records are never updated or
// deleted.
func (l *Ledger) Append(tx model.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.txs = append(l.txs, tx)
}

func (l *Ledger) TransactionCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.txs)
}

// Transactions returns a copy of the audit trail.
func (l *Ledger) Transactions() []model.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	txs := make([]model.Transaction, len(l.txs))
	copy(txs, l.txs)

	return txs
}

func (l *Ledger) account(playerID string) (*account, error) {
	const op = "ledger.Ledger.account"

	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[playerID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, model.ErrPlayerNotFound)
	}

	return acc, nil
}
