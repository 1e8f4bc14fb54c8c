package models

import "strings"

// ShiftColumns are the seven published and seven draft day columns shared
// by the staff and weekly_schedules tables. NULL and "" both mean no shift.
type ShiftColumns struct {
	Sunday    *string `json:"sunday" db:"sunday"`
	Monday    *string `json:"monday" db:"monday"`
	Tuesday   *string `json:"tuesday" db:"tuesday"`
	Wednesday *string `json:"wednesday" db:"wednesday"`
	Thursday  *string `json:"thursday" db:"thursday"`
	Friday    *string `json:"friday" db:"friday"`
	Saturday  *string `json:"saturday" db:"saturday"`

	DraftSunday    *string `json:"draft_sunday" db:"draft_sunday"`
	DraftMonday    *string `json:"draft_monday" db:"draft_monday"`
	DraftTuesday   *string `json:"draft_tuesday" db:"draft_tuesday"`
	DraftWednesday *string `json:"draft_wednesday" db:"draft_wednesday"`
	DraftThursday  *string `json:"draft_thursday" db:"draft_thursday"`
	DraftFriday    *string `json:"draft_friday" db:"draft_friday"`
	DraftSaturday  *string `json:"draft_saturday" db:"draft_saturday"`
}

// Week is one shift string per day, Sunday first.
type Week [7]string

func (c *ShiftColumns) published() [7]**string {
	return [7]**string{&c.Sunday, &c.Monday, &c.Tuesday, &c.Wednesday, &c.Thursday, &c.Friday, &c.Saturday}
}

func (c *ShiftColumns) drafts() [7]**string {
	return [7]**string{&c.DraftSunday, &c.DraftMonday, &c.DraftTuesday, &c.DraftWednesday, &c.DraftThursday, &c.DraftFriday, &c.DraftSaturday}
}

// Published returns the published day columns.
func (c ShiftColumns) Published() Week {
	return read(c.published())
}

// Drafts returns the draft day columns.
func (c ShiftColumns) Drafts() Week {
	return read(c.drafts())
}

// SetPublished overwrites the published day columns.
func (c *ShiftColumns) SetPublished(w Week) {
	write(c.published(), w)
}

// SetDrafts overwrites the draft day columns.
func (c *ShiftColumns) SetDrafts(w Week) {
	write(c.drafts(), w)
}

// Resolved picks, per day, the draft when it is non-empty and the
// published value otherwise. This is what a manager sees.
func (c ShiftColumns) Resolved() Week {
	published, drafts := c.Published(), c.Drafts()
	var out Week
	for i := range out {
		if drafts[i] != "" {
			out[i] = drafts[i]
		} else {
			out[i] = published[i]
		}
	}
	return out
}

// HasUnpublishedDraft reports whether any non-empty draft differs from
// the published value of the same day.
func (c ShiftColumns) HasUnpublishedDraft() bool {
	published, drafts := c.Published(), c.Drafts()
	for i := range drafts {
		if drafts[i] != "" && drafts[i] != published[i] {
			return true
		}
	}
	return false
}

// Args returns the 14 column values in storage order, published first,
// with empty strings mapped to NULL.
func (c ShiftColumns) Args() []interface{} {
	args := make([]interface{}, 0, 14)
	for _, p := range c.published() {
		args = append(args, nullArg(*p))
	}
	for _, p := range c.drafts() {
		args = append(args, nullArg(*p))
	}
	return args
}

func read(cols [7]**string) Week {
	var w Week
	for i, p := range cols {
		if *p != nil {
			w[i] = **p
		}
	}
	return w
}

func write(cols [7]**string, w Week) {
	for i, p := range cols {
		*p = NullIfEmpty(w[i])
	}
}

func nullArg(p *string) *string {
	if p == nil {
		return nil
	}
	return NullIfEmpty(*p)
}

// NullIfEmpty maps blank shift text to NULL and keeps anything else
// exactly as entered.
func NullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// StaffWeek is one row of a rendered week.
type StaffWeek struct {
	StaffID      int64   `json:"staff_id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	DisplayOrder *int    `json:"display_order,omitempty"`
	Shifts       Week    `json:"shifts"`
	Published    Week    `json:"published"`
	Hours        float64 `json:"hours"`
}

// Dirty reports whether the displayed shifts differ from what is published.
func (s StaffWeek) Dirty() bool {
	return s.Shifts != s.Published
}

// WeekView is a terminal's rota for one week.
type WeekView struct {
	Terminal   int         `json:"terminal"`
	WeekStart  Date        `json:"week_start"`
	WeekNumber int         `json:"week_number"`
	IsCurrent  bool        `json:"is_current"`
	TodayIndex int         `json:"today_index"`
	DayLabels  [7]string   `json:"day_labels"`
	Staff      []StaffWeek `json:"staff"`
	TotalHours float64     `json:"total_hours"`
}
