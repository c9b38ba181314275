package voucher

// Topology is the shape of a voucher by leg count on each side.
type Topology string

const (
	TopologyOneToOne            Topology = "one_to_one"
	TopologyOneCreditManyDebit  Topology = "one_credit_many_debit"
	TopologyManyCreditOneDebit  Topology = "many_credit_one_debit"
	TopologyManyCreditManyDebit Topology = "many_credit_many_debit"
	// TopologyInvalid covers zero-debit or zero-credit groups.
	TopologyInvalid Topology = "invalid"
)

// displayNames follow the voucher-type vocabulary of the source journals.
var displayNames = map[Topology]string{
	TopologyOneToOne:            "一贷一借",
	TopologyOneCreditManyDebit:  "一贷多借",
	TopologyManyCreditOneDebit:  "多贷一借",
	TopologyManyCreditManyDebit: "多贷多借",
	TopologyInvalid:             "无效",
}

// Display returns the Chinese voucher-type label used in output records.
func (t Topology) Display() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return string(t)
}

// Classify assigns a topology from the group's leg counts. Pure function;
// the only failure mode is TopologyInvalid for one-sided groups.
func Classify(g Group) Topology {
	d, c := len(g.Debits), len(g.Credits)
	switch {
	case d == 0 || c == 0:
		return TopologyInvalid
	case d == 1 && c == 1:
		return TopologyOneToOne
	case d > 1 && c == 1:
		return TopologyOneCreditManyDebit
	case d == 1 && c > 1:
		return TopologyManyCreditOneDebit
	default:
		return TopologyManyCreditManyDebit
	}
}
