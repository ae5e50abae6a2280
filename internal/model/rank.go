package model

import "strings"

// Status is the lifecycle state of a scheduled item.
type Status string

const (
	StatusBlocked    Status = "blocked"
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Priority is the urgency of a scheduled item. The zero value means unset.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recurrence is the coarse repeat rule stored on an event.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Rank tables used everywhere events are ordered by an enumerated field.
// Lower rank sorts first in ascending order. Lexical order would be wrong
// for both (it puts "high" before "urgent" and "completed" before "pending").
var (
	priorityRank = map[Priority]int{
		PriorityUrgent: 0,
		PriorityHigh:   1,
		PriorityMedium: 2,
		PriorityLow:    3,
	}

	statusRank = map[Status]int{
		StatusBlocked:    0,
		StatusPending:    1,
		StatusScheduled:  2,
		StatusInProgress: 3,
		StatusCompleted:  4,
		StatusCancelled:  5,
	}
)

// Statuses lists every status in rank order.
var Statuses = []Status{
	StatusBlocked,
	StatusPending,
	StatusScheduled,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// Priorities lists every priority in rank order.
var Priorities = []Priority{
	PriorityUrgent,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
}

// Rank returns the sort rank of p. Unset or unknown priorities rank after low.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank returns the sort rank of s. Unknown statuses rank last.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// ParseStatus accepts the wire spelling plus the hyphenated form used in
// older query strings ("in-progress").
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	return st, st.Valid()
}

func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}
