package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the longest title, in characters, a task may carry.
const MaxTitleLength = 255

// Task validation errors. All of them wrap ErrValidation.
var (
	ErrEmptyTitle    = fmt.Errorf("%w: title is required", ErrValidation)
	ErrTitleTooLong  = fmt.Errorf("%w: title must be at most %d characters", ErrValidation, MaxTitleLength)
	ErrEmptyPatch    = fmt.Errorf("%w: no fields to update", ErrValidation)
	ErrEmptyTaskUser = fmt.Errorf("%w: task user ID cannot be empty", ErrValidation)
)

// Task is a single to-do item owned by exactly one user.
// ID is assigned by the store and never changes.
type Task struct {
	ID          int64     `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidateTitle checks that a title is non-blank and within MaxTitleLength.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// ValidateNewTask checks the inputs for creating a task.
func ValidateNewTask(userID uuid.UUID, title string) error {
	if userID == uuid.Nil {
		return ErrEmptyTaskUser
	}
	return ValidateTitle(title)
}

// TaskFilter selects which of a user's tasks a listing returns.
type TaskFilter string

const (
	// TaskFilterAll selects every task.
	TaskFilterAll TaskFilter = "all"
	// TaskFilterCompleted selects tasks with Completed set.
	TaskFilterCompleted TaskFilter = "completed"
	// TaskFilterPending selects tasks with Completed unset.
	TaskFilterPending TaskFilter = "pending"
)

// AllTaskFilters lists every filter value. Anything keyed by filter
// (cache entries in particular) must cover exactly this set.
var AllTaskFilters = []TaskFilter{TaskFilterAll, TaskFilterCompleted, TaskFilterPending}

// ParseTaskFilter maps a raw query value to a TaskFilter.
// Empty or unrecognized values select TaskFilterAll.
func ParseTaskFilter(raw string) TaskFilter {
	switch f := TaskFilter(raw); f {
	case TaskFilterCompleted, TaskFilterPending:
		return f
	default:
		return TaskFilterAll
	}
}

// String returns the filter's wire value.
func (f TaskFilter) String() string {
	return string(f)
}

// CompletedValue reports the completion state the filter requires.
// ok is false for TaskFilterAll, which places no constraint.
func (f TaskFilter) CompletedValue() (completed bool, ok bool) {
	switch f {
	case TaskFilterCompleted:
		return true, true
	case TaskFilterPending:
		return false, true
	default:
		return false, false
	}
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the patch carries no fields at all.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Validate rejects empty patches and blank or oversized titles.
func (p TaskPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Title != nil {
		return ValidateTitle(*p.Title)
	}
	return nil
}
