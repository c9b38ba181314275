package dictionary

import (
	"sort"
	"strings"
)

// AliasDef pairs a raw auxiliary-tag type label as it appears in source
// journals with its canonical identifier.
type AliasDef struct {
	Alias     string `json:"alias"`
	Canonical string `json:"canonical"`
}

// curated maps raw type labels to canonical identifiers. Multiple labels may
// share one canonical id (e.g. 人员档案/员工/人员 are all "employee").
var curated = map[string]string{
	"客商":     "supplier_customer",
	"供应商":    "supplier",
	"客户":     "customer",
	"项目":     "project",
	"部门":     "department",
	"银行账户":   "bank_account",
	"人员档案":   "employee",
	"员工":     "employee",
	"人员":     "employee",
	"款项名称":   "payment_item",
	"绩效部门":   "performance_dept",
	"绩效部门hl": "performance_dept_hl",
	"往来单位":   "business_partner",
	"单位":     "unit",
	"结算方式":   "settlement_method",
	"现金流量项目": "cash_flow_item",
	"业务员":    "salesman",
	"存货":     "inventory",
	"自定义项":   "custom_item",
	"托外流水号":  "external_flow_number",
	"外部流水号":  "external_flow_number",
	"流水号":    "flow_number",
	"业务类别":   "business_category",
	"物业地址":   "property_address",
	"银行档案":   "bank_archive",
	"合同编号":   "contract_number",
	"发票号码":   "invoice_number",
	"收款单位":   "receiving_unit",
	"付款单位":   "paying_unit",
	"施工编号":   "construction_number",
	"项目编号":   "project_number",
	"档案编号":   "archive_number",
}

// display maps canonical ids back to a preferred raw label. Where several
// aliases collapse to one canonical id the most specific label wins.
var display = buildDisplay()

func buildDisplay() map[string]string {
	out := make(map[string]string, len(curated))
	for alias, canonical := range curated {
		if canonical == "external_flow_number" {
			// 托外流水号 is the label the journals actually use.
			if alias == "托外流水号" {
				out[canonical] = alias
			}
			continue
		}
		if _, ok := out[canonical]; !ok {
			out[canonical] = alias
		}
	}
	out["external_flow_number"] = "托外流水号"
	out["employee"] = "人员档案"
	out["department"] = "部门"
	return out
}

// ordered holds aliases sorted by descending length (then lexically) so the
// fuzzy pass always prefers the most specific label and stays deterministic.
var ordered = buildOrdered()

func buildOrdered() []AliasDef {
	out := make([]AliasDef, 0, len(curated))
	for alias, canonical := range curated {
		out = append(out, AliasDef{Alias: alias, Canonical: canonical})
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := len([]rune(out[i].Alias)), len([]rune(out[j].Alias))
		if li != lj {
			return li > lj
		}
		return out[i].Alias < out[j].Alias
	})
	return out
}

// Lookup resolves a raw type label to its canonical id. Exact match first,
// then substring containment in either direction, most specific alias first.
func Lookup(raw string) (string, bool) {
	if canonical, ok := curated[raw]; ok {
		return canonical, true
	}
	for _, def := range ordered {
		if strings.Contains(raw, def.Alias) || strings.Contains(def.Alias, raw) {
			return def.Canonical, true
		}
	}
	return "", false
}

// Display returns the preferred raw label for a canonical id, or the id
// itself when none is known.
func Display(canonical string) string {
	if label, ok := display[canonical]; ok {
		return label
	}
	return canonical
}

// Aliases returns a copy of the curated alias table, e.g. for merging with
// per-deployment overrides.
func Aliases() map[string]string {
	out := make(map[string]string, len(curated))
	for alias, canonical := range curated {
		out[alias] = canonical
	}
	return out
}
