package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LicensesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_licenses_issued_total",
			Help: "Licenses issued, by tier",
		},
		[]string{"tier"},
	)

	LicenseRenewals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entitlement_license_renewals_total",
		Help: "Successful license renewals",
	})

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_license_status_transitions_total",
			Help: "Administrative license status transitions, by target status",
		},
		[]string{"to"},
	)

	MembersAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entitlement_license_members_added_total",
		Help: "Members added to licenses",
	})

	BackfillRowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entitlement_usage_backfill_rows_total",
		Help: "Synthetic usage rows written by the backfill generator",
	})
)
