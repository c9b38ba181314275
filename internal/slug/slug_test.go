package slug

import "testing"

func TestIsSlug(t *testing.T) {
	cases := map[string]bool{
		"bank_account": true,
		"a":            false,
		"Bank":         false,
		"has space":    false,
		"supplier_customer": true,
	}
	for in, want := range cases {
		if got := IsSlug(in); got != want {
			t.Fatalf("IsSlug(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCanonical(t *testing.T) {
	cases := map[string]string{
		"Custom Item":   "custom_item",
		"  Payment  ":   "payment",
		"a  b":          "a_b",
		"托外流水号":         "托外流水号",
		"自定义 项":         "自定义_项",
		"":              "",
		"_leading":      "leading",
	}
	for in, want := range cases {
		if got := Canonical(in); got != want {
			t.Fatalf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}
