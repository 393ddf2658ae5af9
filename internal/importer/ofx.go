package importer

import (
	"bytes"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/source"
)

// OFXParser parses OFX and QFX downloads, both bank and credit card
// statements. A negative TRNAMT is an expense.
type OFXParser struct{}

// Format returns the parser format.
func (p *OFXParser) Format() Format { return FormatOFX }

// Parse reads every statement in an OFX response.
func (p *OFXParser) Parse(t *source.Table) (*Batch, error) {
	resp, err := ofxgo.ParseResponse(bytes.NewReader(t.Raw))
	if err != nil {
		return nil, &ParseFailure{Format: FormatOFX, Reason: "malformed OFX", Err: err}
	}

	var lists []*ofxgo.TransactionList
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	if len(lists) == 0 {
		return nil, &ParseFailure{Format: FormatOFX, Reason: "no bank or credit card statement"}
	}

	b := &Batch{Format: FormatOFX}
	row := 0
	for _, list := range lists {
		for _, txn := range list.Transactions {
			row++
			p.addTransaction(b, row, txn)
		}
	}
	return b, nil
}

func (p *OFXParser) addTransaction(b *Batch, row int, txn ofxgo.Transaction) {
	date := txn.DtPosted.Time
	if date.IsZero() && txn.DtUser != nil {
		date = txn.DtUser.Time
	}
	if date.IsZero() {
		b.skip(row, "missing posted and user date")
		return
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	desc := txn.Name.String()
	if desc == "" {
		desc = txn.Memo.String()
	}

	amount, err := decimal.NewFromString(txn.TrnAmt.FloatString(2))
	if err != nil {
		b.skip(row, "unparseable amount")
		return
	}
	typ := model.TxnIncome
	if amount.IsNegative() {
		typ = model.TxnExpense
	}
	b.addDated(row, date, desc, amount, typ)
}
