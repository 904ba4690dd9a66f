package ledger

import "github.com/ndewijer/portfolio-service/internal/model"

// Append adds tx to the end of the portfolio's transaction log.
// Earlier entries are never reordered or modified.
func Append(p *model.Portfolio, tx model.Transaction) {
	p.Transactions = append(p.Transactions, tx)
}

// List returns the transaction log in execution order, oldest first.
// The returned slice is a copy and never nil.
func List(p *model.Portfolio) []model.Transaction {
	out := make([]model.Transaction, len(p.Transactions))
	copy(out, p.Transactions)
	return out
}
