package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is a three letter weekday code as used on the timetable grid.
type Day string

const (
	DayMonday    Day = "Mon"
	DayTuesday   Day = "Tue"
	DayWednesday Day = "Wed"
	DayThursday  Day = "Thu"
	DayFriday    Day = "Fri"
	DaySaturday  Day = "Sat"
)

var dayOrder = map[Day]int{
	DayMonday:    1,
	DayTuesday:   2,
	DayWednesday: 3,
	DayThursday:  4,
	DayFriday:    5,
	DaySaturday:  6,
}

// ParseDay validates a weekday code.
func ParseDay(value string) (Day, error) {
	d := Day(value)
	if _, ok := dayOrder[d]; !ok {
		return "", fmt.Errorf("invalid day %q", value)
	}
	return d, nil
}

// Ordinal returns the weekday position starting at 1 for Monday, 0 when unknown.
func (d Day) Ordinal() int {
	return dayOrder[d]
}

// TimeOfDay is a wall clock time stored as minutes since midnight.
type TimeOfDay int

// Clock builds a TimeOfDay from hours and minutes.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseHHMM parses the compact four digit form used in grid cell keys, e.g. "0840".
func ParseHHMM(value string) (TimeOfDay, error) {
	if len(value) != 4 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	h, err := strconv.Atoi(value[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	m, err := strconv.Atoi(value[2:])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return newClock(h, m, value)
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return newClock(h, m, value)
}

func newClock(h, m int, raw string) (TimeOfDay, error) {
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	return Clock(h, m), nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// HHMM formats the compact cell key form.
func (t TimeOfDay) HHMM() string {
	return fmt.Sprintf("%02d%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan implements sql.Scanner for TIME columns.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = Clock(v.Hour(), v.Minute())
		return nil
	case []byte:
		return t.UnmarshalText(v)
	case string:
		return t.UnmarshalText([]byte(v))
	case nil:
		return fmt.Errorf("scan time of day: null value")
	default:
		return fmt.Errorf("scan time of day: unsupported type %T", src)
	}
}

// Value implements driver.Valuer.
func (t TimeOfDay) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", t.Hour(), t.Minute()), nil
}

// TimetableEntry is one persisted timetable row: a teacher teaching a subject in a period
// to one or more class groups.
type TimetableEntry struct {
	ID          string            `db:"id" json:"id"`
	SubjectID   int64             `db:"subject_id" json:"subject_id"`
	TeacherID   int64             `db:"teacher_id" json:"teacher_id"`
	Day         Day               `db:"day" json:"day"`
	StartTime   TimeOfDay         `db:"start_time" json:"start_time"`
	EndTime     TimeOfDay         `db:"end_time" json:"end_time"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
	ClassGroups []EntryClassGroup `db:"-" json:"class_groups"`
}

// EntryClassGroup links an entry to a class group at a visual sub-index (1..3) of the grid cell.
type EntryClassGroup struct {
	EntryID      string `db:"entry_id" json:"-"`
	ClassGroupID int64  `db:"class_group_id" json:"class_group_id"`
	SubIndex     int    `db:"sub_index" json:"sub_index"`
}

// HasClassGroup reports whether the entry is linked to the class group.
func (e TimetableEntry) HasClassGroup(classGroupID int64) bool {
	for _, link := range e.ClassGroups {
		if link.ClassGroupID == classGroupID {
			return true
		}
	}
	return false
}

// ClassGroupIDs returns the linked class group ids in link order.
func (e TimetableEntry) ClassGroupIDs() []int64 {
	ids := make([]int64, 0, len(e.ClassGroups))
	for _, link := range e.ClassGroups {
		ids = append(ids, link.ClassGroupID)
	}
	return ids
}

// TimetableEntryFilter narrows entry listings. Empty slices do not filter.
type TimetableEntryFilter struct {
	Days          []string
	ClassGroupIDs []int64
	TeacherIDs    []int64
}
