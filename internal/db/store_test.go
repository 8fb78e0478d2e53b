package db

import (
	"strings"
	"testing"
)

func TestBuildActiveTabConstraint_IsStrict(t *testing.T) {
	clause := buildActiveTabConstraint()

	mustContain := []string{
		"status = 'active'",
		"deadline_at IS NULL OR deadline_at >= NOW()",
	}

	for _, token := range mustContain {
		if !strings.Contains(clause, token) {
			t.Fatalf("active clause missing token %q: %s", token, clause)
		}
	}
}

func TestSanitizeStringSlice_DropsBlanks(t *testing.T) {
	got := sanitizeStringSlice([]string{" software ", "", "  ", "obras"})
	if len(got) != 2 || got[0] != "software" || got[1] != "obras" {
		t.Fatalf("got %v, want [software obras]", got)
	}
}

func TestNullable_EmptyBecomesNil(t *testing.T) {
	if nullable("   ") != nil {
		t.Fatal("blank string should map to NULL")
	}
	if v := nullable("Banco"); v == nil || *v != "Banco" {
		t.Fatalf("got %v, want Banco", v)
	}
	if nullableFloat(0) != nil {
		t.Fatal("zero budget should map to NULL")
	}
}
