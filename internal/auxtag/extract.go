package auxtag

// Canonical ids for the tag types the allocation output cares about.
const (
	TypeBankAccount     = "bank_account"
	TypeDepartment      = "department"
	TypePerformanceDept = "performance_dept"
	TypeCustomer        = "supplier_customer"
	TypeEmployee        = "employee"
)

// First returns the value of the first tag with the given canonical type.
func First(tags []Tag, canonical string) (string, bool) {
	for _, t := range tags {
		if t.CanonicalType == canonical {
			return t.Value, true
		}
	}
	return "", false
}

// All returns every value carried under the given canonical type, in order.
func All(tags []Tag, canonical string) []string {
	var out []string
	for _, t := range tags {
		if t.CanonicalType == canonical {
			out = append(out, t.Value)
		}
	}
	return out
}

// BankAccount extracts the paying bank account, if tagged.
func BankAccount(tags []Tag) string {
	v, _ := First(tags, TypeBankAccount)
	return v
}

// Department extracts the department, falling back to the performance
// department when no plain department tag is present.
func Department(tags []Tag) string {
	if v, ok := First(tags, TypeDepartment); ok {
		return v
	}
	v, _ := First(tags, TypePerformanceDept)
	return v
}

// Customer extracts the counterparty (客商).
func Customer(tags []Tag) string {
	v, _ := First(tags, TypeCustomer)
	return v
}

// Employee extracts the person on record (人员档案).
func Employee(tags []Tag) string {
	v, _ := First(tags, TypeEmployee)
	return v
}
