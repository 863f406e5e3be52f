package repository

import "testing"

func TestNullableIDEmptyBecomesNull(t *testing.T) {
	if got := nullableID(""); got != nil {
		t.Fatalf("nullableID(\"\") = %v, want nil", got)
	}
}

func TestNullableIDKeepsValue(t *testing.T) {
	got := nullableID("6f1c2a9e-0000-4000-8000-000000000001")
	id, ok := got.(string)
	if !ok || id != "6f1c2a9e-0000-4000-8000-000000000001" {
		t.Fatalf("nullableID() = %v, want the id unchanged", got)
	}
}
