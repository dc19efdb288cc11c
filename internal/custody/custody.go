// Package custody is an in-process token balance ledger with atomic
// transfer-plan application. A settlement batch reduces to one planned
// transfer per token; the plan either fully lands or nothing moves.
package custody

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

var ErrInsufficientFunds = errors.New("custody: insufficient funds")

// Transfer moves amount of token from one account to another.
type Transfer struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *ui.Int
}

// Ledger tracks token balances per account.
type Ledger struct {
	balances map[common.Address]map[common.Address]*ui.Int
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[common.Address]map[common.Address]*ui.Int)}
}

// Credit adds funds to an account, used to seed payer balances.
func (l *Ledger) Credit(token, account common.Address, amount *ui.Int) {
	l.balance(token, account).Add(l.balance(token, account), amount)
}

// BalanceOf returns the balance of an account for a token.
func (l *Ledger) BalanceOf(token, account common.Address) *ui.Int {
	return l.balance(token, account).Clone()
}

// Apply executes a transfer plan atomically: every debit is checked before
// any balance moves, so a failing plan leaves the ledger untouched.
func (l *Ledger) Apply(plan []Transfer) error {
	debits := make(map[common.Address]map[common.Address]*ui.Int)
	for _, tr := range plan {
		if tr.Amount.IsZero() {
			continue
		}
		perToken, ok := debits[tr.Token]
		if !ok {
			perToken = make(map[common.Address]*ui.Int)
			debits[tr.Token] = perToken
		}
		total, ok := perToken[tr.From]
		if !ok {
			total = new(ui.Int)
			perToken[tr.From] = total
		}
		total.Add(total, tr.Amount)
	}

	for token, perToken := range debits {
		for from, total := range perToken {
			if l.balance(token, from).Cmp(total) < 0 {
				return ErrInsufficientFunds
			}
		}
	}

	for _, tr := range plan {
		if tr.Amount.IsZero() {
			continue
		}
		l.balance(tr.Token, tr.From).Sub(l.balance(tr.Token, tr.From), tr.Amount)
		l.balance(tr.Token, tr.To).Add(l.balance(tr.Token, tr.To), tr.Amount)
	}
	return nil
}

func (l *Ledger) balance(token, account common.Address) *ui.Int {
	perToken, ok := l.balances[token]
	if !ok {
		perToken = make(map[common.Address]*ui.Int)
		l.balances[token] = perToken
	}
	bal, ok := perToken[account]
	if !ok {
		bal = new(ui.Int)
		perToken[account] = bal
	}
	return bal
}
