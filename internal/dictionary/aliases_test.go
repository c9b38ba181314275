package dictionary

import "testing"

func TestLookupExact(t *testing.T) {
	cases := map[string]string{
		"客商":    "supplier_customer",
		"人员档案":  "employee",
		"员工":    "employee",
		"托外流水号": "external_flow_number",
		"外部流水号": "external_flow_number",
		"绩效部门hl": "performance_dept_hl",
	}
	for raw, want := range cases {
		got, ok := Lookup(raw)
		if !ok || got != want {
			t.Fatalf("Lookup(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}
}

func TestLookupFuzzyPrefersLongestAlias(t *testing.T) {
	// 绩效部门x contains both 部门 and 绩效部门; the longer alias must win.
	got, ok := Lookup("绩效部门x")
	if !ok || got != "performance_dept" {
		t.Fatalf("Lookup(绩效部门x) = %q, %v; want performance_dept", got, ok)
	}
	// Containment in the other direction: a truncated label still resolves.
	got, ok = Lookup("银行账")
	if !ok || got != "bank_account" {
		t.Fatalf("Lookup(银行账) = %q, %v; want bank_account", got, ok)
	}
}

func TestLookupMiss(t *testing.T) {
	if _, ok := Lookup("完全未知类型"); ok {
		t.Fatalf("expected miss for unknown label")
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("external_flow_number"); got != "托外流水号" {
		t.Fatalf("Display(external_flow_number) = %q", got)
	}
	if got := Display("employee"); got != "人员档案" {
		t.Fatalf("Display(employee) = %q", got)
	}
	if got := Display("never_seen"); got != "never_seen" {
		t.Fatalf("Display passthrough = %q", got)
	}
}

func TestAliasesCopy(t *testing.T) {
	a := Aliases()
	a["客商"] = "mutated"
	if got, _ := Lookup("客商"); got != "supplier_customer" {
		t.Fatalf("Aliases() must return a copy; Lookup now returns %q", got)
	}
}
