// Package settle provides a multi-tenant revenue settlement engine for
// franchise-based education platforms.
//
// Settle is designed as a library, not a service. Import it directly into
// your Go application and wire it to a store. It provides:
//
//   - Tenant context resolution from authenticated principal claims
//   - Fail-closed tenant isolation on every read and write
//   - Exact integer revenue splits between company, tax, and franchise
//   - Race-safe settlement runs that settle each revenue event exactly once
//   - Atomic per-tenant, per-period registration number allocation
//   - Financial metrics and a time-descending transaction ledger
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/campuskit/settle"
//	    "github.com/campuskit/settle/store/memory"
//	)
//
//	eng := settle.New(memory.New())
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Every operation takes an explicit tenant context resolved from the
// caller's authenticated claims:
//
//	tc, err := eng.ResolveTenant(ctx, tenant.Principal{
//	    Role:   "franchise_admin",
//	    UserID: "user-42",
//	}, "")
//
// Revenue events are recognized once and later settled exactly once:
//
//	err = eng.RecordRevenue(ctx, tc, &revenue.Event{
//	    SourceType:  revenue.SourceEnrollment,
//	    SourceID:    "enr-1001",
//	    GrossAmount: settle.INR(2500000), // ₹25,000.00 in paise
//	    OccurredAt:  time.Now(),
//	})
//
//	rec, err := eng.ProcessSettlement(ctx, tc)
//
// Registration numbers are allocated atomically per tenant and admission
// year, formatted as "BR1_24_001":
//
//	reg, err := eng.AllocateRegistration(ctx, tc, "24")
//
// # Money
//
// All monetary calculations use integer arithmetic in minor units (paise
// for INR). Settlement splits truncate the company and tax shares and
// assign the remainder to the franchise, so the three shares always sum to
// the gross exactly.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	rev_01h2xcejqtf2nbrexx3vqjhp41  // Revenue event ID
//	stl_01h455vb4pex5vsknk084sn02q  // Settlement record ID
//	adm_01h455vb4pex5vsknk084sn02q  // Admin binding ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package settle
