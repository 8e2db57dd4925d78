package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	validationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lastuser_validation_rejections_total",
			Help: "Submissions rejected during validation, by entity and field.",
		},
		[]string{"entity", "field"},
	)

	grantReplacements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lastuser_grant_replacements_total",
			Help: "Permission sets replaced on a client grant, by target kind.",
		},
		[]string{"target"},
	)

	ownerReassignments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lastuser_client_owner_reassignments_total",
			Help: "Clients moved to a different owner, revoking their grants.",
		},
	)

	storageConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lastuser_storage_conflicts_total",
			Help: "Writes refused by a storage uniqueness constraint.",
		},
		[]string{"constraint"},
	)

	scopeResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lastuser_scope_resolutions_total",
			Help: "Scope token resolutions, by outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers the service metrics with the default registry. Call it once
// at startup.
func Init() {
	prometheus.MustRegister(
		validationRejections,
		grantReplacements,
		ownerReassignments,
		storageConflicts,
		scopeResolutions,
	)
}

// ValidationRejected records a rejected submission field.
func ValidationRejected(entity, field string) {
	validationRejections.WithLabelValues(entity, field).Inc()
}

// GrantReplaced records a replaced permission set. target is "user" or "team".
func GrantReplaced(target string) {
	grantReplacements.WithLabelValues(target).Inc()
}

// OwnerReassigned records a client moving to a new owner.
func OwnerReassigned() {
	ownerReassignments.Inc()
}

// StorageConflict records a write refused by the named uniqueness constraint.
func StorageConflict(constraint string) {
	storageConflicts.WithLabelValues(constraint).Inc()
}

// ScopeResolved records the outcome of a scope token resolution.
func ScopeResolved(outcome string) {
	scopeResolutions.WithLabelValues(outcome).Inc()
}
