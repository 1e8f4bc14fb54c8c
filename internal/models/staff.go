package models

import (
	"time"
)

// Staff is a rota member. The embedded day columns hold the current
// week only.
type Staff struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Role         string    `json:"role" db:"role"`
	Terminal     int       `json:"terminal" db:"terminal"`
	DisplayOrder *int      `json:"display_order,omitempty" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	ShiftColumns
}

// WeeklySchedule holds one staff member's shifts for a non-current week,
// either staged ahead or archived behind.
type WeeklySchedule struct {
	StaffID          int64 `json:"staff_id" db:"staff_id"`
	WeekStartingDate Date  `json:"week_starting_date" db:"week_starting_date"`
	ShiftColumns
}

// CreateStaffInput is the body of POST /terminals/:terminal/staff
type CreateStaffInput struct {
	Name string `json:"name" binding:"required"`
	Role string `json:"role"`
}

// ReorderStaffInput lists staff ids top to bottom.
type ReorderStaffInput struct {
	StaffIDs []int64 `json:"staff_ids" binding:"required"`
}

// ShiftRowInput is one staff member's week in a save or publish request.
type ShiftRowInput struct {
	StaffID int64 `json:"staff_id" binding:"required"`
	Shifts  Week  `json:"shifts"`
}

// SaveShiftsInput is the body of the drafts and publish endpoints.
type SaveShiftsInput struct {
	Rows []ShiftRowInput `json:"rows" binding:"required,dive"`
}
