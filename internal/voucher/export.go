package voucher

// Export shapes mirror the JSON layout of the original payment-tracking
// reports, field names included, so downstream consumers keep working.

import "github.com/govalues/decimal"

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// ExportRecord is the serializable form of a PaymentRecord.
type ExportRecord struct {
	PaymentID      string        `json:"付款ID"`
	VoucherRef     string        `json:"原始凭证"`
	Credit         ExportCredit  `json:"贷方"`
	Debits         []ExportDebit `json:"借方"`
	VoucherType    string        `json:"凭证类型"`
	SequenceIndex  int           `json:"分录序号,omitempty"`
	TotalInVoucher int           `json:"总分录数,omitempty"`
	Check          ExportCheck   `json:"校验信息"`
}

type ExportCredit struct {
	Account     string  `json:"科目名称"`
	Amount      float64 `json:"金额"`
	Summary     string  `json:"摘要"`
	BankAccount string  `json:"银行账户"`
}

type ExportDebit struct {
	Account    string  `json:"科目名称"`
	Amount     float64 `json:"金额"`
	Summary    string  `json:"摘要"`
	Department string  `json:"部门"`
	Customer   string  `json:"客商"`
	Employee   string  `json:"人员"`
	Purpose    string  `json:"款项用途分类"`
	CashFlow   string  `json:"现金流量表项目分类"`
}

type ExportCheck struct {
	DebitTotal  float64 `json:"借方合计"`
	CreditTotal float64 `json:"贷方合计"`
	Status      string  `json:"平衡状态"`
}

const (
	balanceStatusOK  = "平衡"
	balanceStatusBad = "不平衡"
)

// Export maps the record into the report layout.
func (r PaymentRecord) Export() ExportRecord {
	debits := make([]ExportDebit, 0, len(r.Debits))
	for _, f := range r.Debits {
		debits = append(debits, ExportDebit{
			Account:    f.Account,
			Amount:     toFloat(f.Amount),
			Summary:    f.Summary,
			Department: f.Extra.Value(AttrDepartment),
			Customer:   f.Extra.Value(AttrCustomer),
			Employee:   f.Extra.Value(AttrEmployee),
			Purpose:    f.Extra.Value(AttrPurpose),
			CashFlow:   f.Extra.Value(AttrCashFlow),
		})
	}

	status := balanceStatusBad
	if r.BalanceOK {
		status = balanceStatusOK
	}

	return ExportRecord{
		PaymentID:  r.ID,
		VoucherRef: r.VoucherRef,
		Credit: ExportCredit{
			Account:     r.Credit.Account,
			Amount:      toFloat(r.Credit.Amount),
			Summary:     r.Credit.Summary,
			BankAccount: r.Credit.BankAccount,
		},
		Debits:         debits,
		VoucherType:    r.Topology.Display(),
		SequenceIndex:  r.SequenceIndex,
		TotalInVoucher: r.TotalInVoucher,
		Check: ExportCheck{
			DebitTotal:  toFloat(r.DebitTotal()),
			CreditTotal: toFloat(r.Credit.Amount),
			Status:      status,
		},
	}
}

// ExportAll maps a batch of records.
func ExportAll(records []PaymentRecord) []ExportRecord {
	out := make([]ExportRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r.Export())
	}
	return out
}
