package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// DayLayout is the calendar-date key format used throughout the app
// ("YYYY-MM-DD"). Schedules bucket by the day of their start timestamp,
// ledger entries by their item date.
const DayLayout = "2006-01-02"

const (
	CategoryRevenue      Category = "revenue"
	CategoryMaterialCost Category = "material_cost"
	CategoryDailyWage    Category = "daily_wage"
	CategoryExtraIncome  Category = "extra_income"
	CategoryFixedExpense Category = "fixed_expense"
	CategoryExtraExpense Category = "extra_expense"
)

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

type (
	Category string

	Role string

	// ScheduleRecord is a single work appointment with its financial
	// fields. Financial fields use NaN to mark "absent"; aggregation
	// coerces non-finite values to 0, while Net reports them as undefined.
	ScheduleRecord struct {
		ID           int64
		Title        string
		EmployeeName string
		StartTS      time.Time  // zero means missing/unparseable
		EndTS        *time.Time // optional
		Revenue      float64
		MaterialCost float64
		DailyWage    float64
		ExtraCost    float64
	}

	// LedgerEntry is a manually entered financial record not tied to a
	// specific schedule.
	LedgerEntry struct {
		ID           int64
		ItemDate     string // "YYYY-MM-DD"
		Category     Category
		Amount       float64
		Label        string
		EmployeeName string
	}

	// DateRange is an inclusive [From, To] pair of calendar-date strings.
	// A malformed or inverted range is treated as empty.
	DateRange struct {
		From string
		To   string
	}

	Employee struct {
		ID       int64
		Name     string
		Phone    string
		DailyPay float64
		Active   bool
	}

	// Material is a stock-tracked inventory item.
	Material struct {
		ID       int64
		Name     string
		Unit     string
		Stock    float64
		UnitCost float64
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		Role         Role
	}
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidRole     = errors.New("invalid role")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyName       = errors.New("empty name")
	ErrMissingDate     = errors.New("missing date")
	ErrNegativeStock   = errors.New("stock cannot go negative")
	ErrEndBeforeStart  = errors.New("end must not precede start")
	ErrNonFiniteAmount = errors.New("amount must be finite")
)

// Valid reports whether c is one of the six ledger categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryRevenue, CategoryMaterialCost, CategoryDailyWage,
		CategoryExtraIncome, CategoryFixedExpense, CategoryExtraExpense:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// AtLeast reports whether r grants at least the privileges of min.
// Ordering: admin > manager > employee.
func (r Role) AtLeast(min Role) bool {
	return r.rank() >= min.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleEmployee:
		return 1
	}
	return 0
}

// ParseDay parses a "YYYY-MM-DD" calendar-date key.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayLayout, strings.TrimSpace(s))
}

// CanonicalDay parses a calendar-date key and returns it in canonical
// "YYYY-MM-DD" form. Aggregation buckets by canonical keys so a padded
// source date can never land in a bucket no range label matches.
func CanonicalDay(s string) (string, error) {
	d, err := ParseDay(s)
	if err != nil {
		return "", err
	}
	return d.Format(DayLayout), nil
}

// DayKey returns the calendar-date key of the schedule's start timestamp,
// or "" when the start is missing. Records with "" are excluded from
// every report bucket.
func (s ScheduleRecord) DayKey() string {
	if s.StartTS.IsZero() {
		return ""
	}
	return s.StartTS.Format(DayLayout)
}

// Net returns revenue - material_cost - daily_wage + extra_cost/2.
// ok is false when any financial field is non-finite, so callers can
// distinguish a true zero from missing data.
func (s ScheduleRecord) Net() (net float64, ok bool) {
	for _, v := range []float64{s.Revenue, s.MaterialCost, s.DailyWage, s.ExtraCost} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
	}
	return s.Revenue - s.MaterialCost - s.DailyWage + s.ExtraCost/2, true
}

func (s ScheduleRecord) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return ErrEmptyTitle
	}
	if s.StartTS.IsZero() {
		return ErrMissingDate
	}
	if s.EndTS != nil && s.EndTS.Before(s.StartTS) {
		return ErrEndBeforeStart
	}
	return nil
}

func (e LedgerEntry) Validate() error {
	if _, err := ParseDay(e.ItemDate); err != nil {
		return ErrMissingDate
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return ErrNonFiniteAmount
	}
	return nil
}

// Empty reports whether the range is malformed or inverted. An empty
// range yields empty report output by design; callers must supply a
// valid range to get any series.
func (r DateRange) Empty() bool {
	from, err := ParseDay(r.From)
	if err != nil {
		return true
	}
	to, err := ParseDay(r.To)
	if err != nil {
		return true
	}
	return from.After(to)
}

// Days expands the range into one key per calendar day, inclusive.
// Malformed ranges expand to nil.
func (r DateRange) Days() []string {
	if r.Empty() {
		return nil
	}
	from, _ := ParseDay(r.From)
	to, _ := ParseDay(r.To)

	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DayLayout))
	}
	return days
}

// Contains reports whether the day key falls inside the range. Keys and
// bounds are compared after whitespace trimming, matching ParseDay.
func (r DateRange) Contains(day string) bool {
	if r.Empty() {
		return false
	}
	day = strings.TrimSpace(day)
	if day == "" {
		return false
	}
	return day >= strings.TrimSpace(r.From) && day <= strings.TrimSpace(r.To)
}

func (e Employee) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (m Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if m.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyName
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}
