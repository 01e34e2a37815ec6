package gateway

import (
	"context"

	"fixops/internal/core"
)

// Ports for the data-access layer. Handlers and services depend on these
// instead of a concrete store, so an authenticated handle is always passed
// in explicitly rather than reached through an ambient singleton.
type (
	ScheduleStore interface {
		CreateSchedule(ctx context.Context, s core.ScheduleRecord) (int64, error)
		UpdateSchedule(ctx context.Context, s core.ScheduleRecord) error
		DeleteSchedule(ctx context.Context, id int64) error
		GetSchedule(ctx context.Context, id int64) (core.ScheduleRecord, error)
		// ListSchedules returns records whose start day falls inside rng;
		// an empty range lists everything.
		ListSchedules(ctx context.Context, rng core.DateRange) ([]core.ScheduleRecord, error)
	}

	LedgerStore interface {
		CreateEntry(ctx context.Context, e core.LedgerEntry) (int64, error)
		UpdateEntry(ctx context.Context, e core.LedgerEntry) error
		DeleteEntry(ctx context.Context, id int64) error
		GetEntry(ctx context.Context, id int64) (core.LedgerEntry, error)
		// ListEntries returns entries whose item date falls inside rng;
		// an empty range lists everything.
		ListEntries(ctx context.Context, rng core.DateRange) ([]core.LedgerEntry, error)
	}

	InventoryStore interface {
		CreateMaterial(ctx context.Context, m core.Material) (int64, error)
		GetMaterial(ctx context.Context, id int64) (core.Material, error)
		ListMaterials(ctx context.Context) ([]core.Material, error)
		// AdjustStock applies a signed delta to a material's stock level.
		AdjustStock(ctx context.Context, id int64, delta float64) (core.Material, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (int64, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
	}

	EmployeeStore interface {
		CreateEmployee(ctx context.Context, e core.Employee) (int64, error)
		ListEmployees(ctx context.Context, activeOnly bool) ([]core.Employee, error)
	}

	// SnapshotStore persists the precomputed per-day net figures the
	// worker maintains from the change feed.
	SnapshotStore interface {
		UpsertSnapshot(ctx context.Context, day string, net float64) error
		ListSnapshots(ctx context.Context, rng core.DateRange) (map[string]float64, error)
	}
)
