package audithook

// Action constants for audit events.
const (
	// Tenant actions
	ActionTenantResolved  = "tenant.resolved"
	ActionIsolationDenied = "isolation.denied"

	// Revenue actions
	ActionRevenueRecorded = "revenue.recorded"

	// Settlement actions
	ActionEventSettled        = "event.settled"
	ActionSettlementConflict  = "settlement.conflict"
	ActionSettlementCompleted = "settlement.completed"

	// Sequence actions
	ActionSequenceAllocated  = "sequence.allocated"
	ActionRegistrationIssued = "registration.issued"
)

// Resource constants for audit events.
const (
	ResourceTenant       = "tenant"
	ResourceRevenueEvent = "revenue_event"
	ResourceSettlement   = "settlement"
	ResourceSequence     = "sequence"
	ResourceRegistration = "registration"
)

// Category constants for audit events.
const (
	CategoryAccess     = "access"
	CategoryRevenue    = "revenue"
	CategorySettlement = "settlement"
	CategoryAdmission  = "admission"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
