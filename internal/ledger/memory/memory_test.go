package memory

import (
	"context"
	"testing"

	"saldo/internal/core"
)

func TestAppendAndEntries(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, core.Transaction{
		ID:       1,
		Title:    "Salary",
		Value:    core.Money{Cents: 500000},
		Type:     core.Income,
		Category: "Salary",
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("Append() ref = %v, want mem:1", ref)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("Entries() len = %d, want 1", len(entries))
	}
	if entries[0].Title != "Salary" {
		t.Errorf("Entries()[0].Title = %v, want Salary", entries[0].Title)
	}
}

func TestAppendRejectsInvalidTransaction(t *testing.T) {
	s := New()

	_, err := s.Append(context.Background(), core.Transaction{
		Title: "",
		Value: core.Money{Cents: 100},
		Type:  core.Income,
	})
	if err == nil {
		t.Fatal("Append() error = nil, want validation error")
	}
	if len(s.Entries()) != 0 {
		t.Error("invalid transaction must not be stored")
	}
}
