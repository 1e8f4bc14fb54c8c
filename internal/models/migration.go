package models

import "time"

// MigrationResult summarises one weekly rollover.
type MigrationResult struct {
	CurrentWeekStart  Date `json:"currentWeekStart"`
	NextWeekStart     Date `json:"nextWeekStart"`
	StaffCount        int  `json:"staffCount"`
	NextWeekDataCount int  `json:"nextWeekDataCount"`
	ArchiveFailures   int  `json:"archiveFailures"`
	PromoteFailures   int  `json:"promoteFailures"`
	// AlreadyApplied is set when the boundary had been crossed before and
	// nothing was written.
	AlreadyApplied bool `json:"alreadyApplied"`
}

// MigrationRecord is a row of the weekly_migrations ledger.
type MigrationRecord struct {
	PromotedWeek      Date      `json:"promoted_week" db:"promoted_week"`
	ArchivedWeek      Date      `json:"archived_week" db:"archived_week"`
	StaffCount        int       `json:"staff_count" db:"staff_count"`
	NextWeekDataCount int       `json:"next_week_data_count" db:"next_week_data_count"`
	RanAt             time.Time `json:"ran_at" db:"ran_at"`
}

// WeekCount is the number of stored rows for one week.
type WeekCount struct {
	WeekStartingDate Date `json:"week_starting_date" db:"week_starting_date"`
	Records          int  `json:"records" db:"records"`
}

// MigrationStatus is the admin "check state" view.
type MigrationStatus struct {
	CurrentWeekStart  Date             `json:"current_week_start"`
	NextWeekStart     Date             `json:"next_week_start"`
	StaffCount        int              `json:"staff_count"`
	NextWeekDataCount int              `json:"next_week_data_count"`
	StoredWeeks       []WeekCount      `json:"stored_weeks"`
	LastRun           *MigrationRecord `json:"last_run,omitempty"`
}
