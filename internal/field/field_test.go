package field

import (
	"errors"
	"testing"
)

var (
	errBadName  = errors.New("bad name")
	errBadOwner = errors.New("bad owner")
)

func TestErrNilWhenEmpty(t *testing.T) {
	var es Errors
	if err := es.Err(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestErrorsCarrySentinels(t *testing.T) {
	var es Errors
	es.Add("name", errBadName, "name %q is not usable", "Bad Name")
	es.Add("owner", errBadOwner, "owner not permitted")

	err := es.Err()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, errBadName) {
		t.Fatal("expected errBadName to be reachable")
	}
	if !errors.Is(err, errBadOwner) {
		t.Fatal("expected errBadOwner to be reachable")
	}

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatal("expected a *field.Error in the chain")
	}
	if fe.Field != "name" {
		t.Fatalf("expected first rejection for name, got %q", fe.Field)
	}
}

func TestFieldsSortedAndDeduped(t *testing.T) {
	var es Errors
	es.Add("owner", errBadOwner, "one")
	es.Add("name", errBadName, "two")
	es.Add("owner", errBadOwner, "three")

	got := es.Fields()
	if len(got) != 2 || got[0] != "name" || got[1] != "owner" {
		t.Fatalf("unexpected fields %v", got)
	}
}

func TestErrorMessageJoinsFields(t *testing.T) {
	var es Errors
	es.Add("name", errBadName, "name is required")
	es.Add("title", errBadName, "title is required")
	want := "name: name is required; title: title is required"
	if es.Error() != want {
		t.Fatalf("got %q, want %q", es.Error(), want)
	}
}
