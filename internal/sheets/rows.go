package sheets

import (
	"strings"

	"meudinheiro/internal/core"
)

// Header is the first row of every ledger tab.
var Header = []any{"ID", "Data", "Descrição", "Categoria", "Tipo", "Status", "Pagamento", "Valor"}

// LedgerRows renders the header and one row per transaction, ordered by
// date and then by ledger position. Amounts are numbers so the sheet can
// sum them.
func LedgerRows(s core.Snapshot) [][]any {
	txs := append([]core.Transaction(nil), s.Transactions...)
	sortByDate(txs)

	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, Header)
	for _, tx := range txs {
		rows = append(rows, []any{
			tx.ID,
			tx.Date,
			tx.Description,
			tx.Category,
			string(tx.Type),
			string(tx.Status),
			tx.PaymentMethod,
			tx.Amount.Round(2).InexactFloat64(),
		})
	}
	return rows
}

func sortByDate(txs []core.Transaction) {
	// insertion sort keeps equal dates in ledger order
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0 && txs[j].Date < txs[j-1].Date; j-- {
			txs[j], txs[j-1] = txs[j-1], txs[j]
		}
	}
}

// TabName builds the sheet title for an owner. Sheets rejects some
// characters in titles and caps them at 100 runes.
func TabName(prefix, ownerID string) string {
	title := strings.TrimSpace(prefix + " " + ownerID)
	title = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', '/', '\\', ':', '\'':
			return '_'
		}
		return r
	}, title)
	if r := []rune(title); len(r) > 100 {
		title = string(r[:100])
	}
	return title
}
