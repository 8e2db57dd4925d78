package obs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAccumulate(t *testing.T) {
	ValidationRejected("client", "owner")
	ValidationRejected("client", "owner")
	if got := testutil.ToFloat64(validationRejections.WithLabelValues("client", "owner")); got != 2 {
		t.Fatalf("validation rejections = %v, want 2", got)
	}

	GrantReplaced("team")
	if got := testutil.ToFloat64(grantReplacements.WithLabelValues("team")); got != 1 {
		t.Fatalf("grant replacements = %v, want 1", got)
	}

	before := testutil.ToFloat64(ownerReassignments)
	OwnerReassigned()
	if got := testutil.ToFloat64(ownerReassignments); got != before+1 {
		t.Fatalf("owner reassignments = %v, want %v", got, before+1)
	}

	StorageConflict("resources_name_key")
	if got := testutil.ToFloat64(storageConflicts.WithLabelValues("resources_name_key")); got != 1 {
		t.Fatalf("storage conflicts = %v, want 1", got)
	}

	ScopeResolved("ok")
	if got := testutil.ToFloat64(scopeResolutions.WithLabelValues("ok")); got != 1 {
		t.Fatalf("scope resolutions = %v, want 1", got)
	}
}

func TestLoggerSwap(t *testing.T) {
	orig := Logger()
	prev := SetLogger(nil)
	if prev != orig {
		t.Fatal("SetLogger did not return the active logger")
	}
	if Logger() == nil {
		t.Fatal("Logger must rebuild after a nil swap")
	}
	SetLogger(orig)
}
