package workflow

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
)

// Status is the publishing state of a content entity.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending_review"
	StatusInReview      Status = "in_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusPublished     Status = "published"
	StatusScheduled     Status = "scheduled"
	StatusUnpublished   Status = "unpublished"
	StatusArchived      Status = "archived"
)

// Statuses lists every known status in declaration order.
var Statuses = []Status{
	StatusDraft,
	StatusPendingReview,
	StatusInReview,
	StatusApproved,
	StatusRejected,
	StatusPublished,
	StatusScheduled,
	StatusUnpublished,
	StatusArchived,
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, status := range Statuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", eris.Errorf("unknown status: %s", raw)
}

// Action names a workflow operation.
type Action string

const (
	ActionSubmitForReview Action = "submit"
	ActionStartReview     Action = "start_review"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionPublish         Action = "publish"
	ActionSchedule        Action = "schedule"
	ActionCancelSchedule  Action = "cancel_schedule"
	ActionUnpublish       Action = "unpublish"
	ActionArchive         Action = "archive"
	ActionUnarchive       Action = "unarchive"
)

// Policy controls whether transition preconditions are enforced.
type Policy int

const (
	// Strict rejects transitions whose source state is not allowed.
	Strict Policy = iota
	// Permissive applies any action from any state.
	Permissive
)

// ParsePolicy maps "strict" or "permissive" to a Policy.
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "strict":
		return Strict, nil
	case "permissive":
		return Permissive, nil
	default:
		return Strict, eris.Errorf("unknown workflow policy: %s", raw)
	}
}

var (
	// ErrIllegalTransition is returned by a strict machine when the current status does not allow the action.
	ErrIllegalTransition = eris.New("illegal workflow transition")
	// ErrScheduleInPast is returned by a strict machine when a schedule date is not in the future.
	ErrScheduleInPast = eris.New("schedule date must be in the future")
	// ErrUnknownAction is returned when an action name is not part of the transition table.
	ErrUnknownAction = eris.New("unknown workflow action")
)

// transition describes one row of the workflow table. An empty from list accepts any status.
type transition struct {
	from []Status
	to   Status
}

var transitions = map[Action]transition{
	ActionSubmitForReview: {to: StatusPendingReview},
	ActionStartReview:     {from: []Status{StatusPendingReview}, to: StatusInReview},
	ActionApprove:         {from: []Status{StatusInReview}, to: StatusApproved},
	ActionReject:          {from: []Status{StatusInReview}, to: StatusRejected},
	ActionPublish:         {to: StatusPublished},
	ActionSchedule:        {to: StatusScheduled},
	ActionCancelSchedule:  {from: []Status{StatusScheduled}, to: StatusDraft},
	ActionUnpublish:       {from: []Status{StatusPublished}, to: StatusUnpublished},
	ActionArchive:         {to: StatusArchived},
	ActionUnarchive:       {from: []Status{StatusArchived}, to: StatusDraft},
}

// Target returns the status an action leads to.
func Target(action Action) (Status, error) {
	t, ok := transitions[action]
	if !ok {
		return "", eris.Wrapf(ErrUnknownAction, "action %s", action)
	}
	return t.to, nil
}

// Allowed reports whether action may be applied from status under the transition table.
func Allowed(action Action, from Status) bool {
	t, ok := transitions[action]
	if !ok {
		return false
	}
	if len(t.from) == 0 {
		return true
	}
	for _, candidate := range t.from {
		if candidate == from {
			return true
		}
	}
	return false
}

// State holds the workflow columns shared by every content entity.
type State struct {
	Status      Status     `gorm:"size:32;not null;default:draft;index" json:"status"`
	SubmittedAt *time.Time `json:"submitted_at"`
	ReviewedBy  *string    `gorm:"size:191" json:"reviewed_by"`
	ReviewNotes *string    `gorm:"type:text" json:"review_notes"`
	PublishedAt *time.Time `json:"published_at"`
	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at"`
	ArchivedAt  *time.Time `json:"archived_at"`
}

// NewState returns the initial workflow state.
func NewState() State {
	return State{Status: StatusDraft}
}

// Current returns the status, treating an empty value as draft.
func (s *State) Current() Status {
	if s.Status == "" {
		return StatusDraft
	}
	return s.Status
}

// IsPublished reports whether the entity is live.
func (s *State) IsPublished() bool {
	return s.Current() == StatusPublished
}

// Machine applies workflow actions to a State.
type Machine struct {
	clock  clockwork.Clock
	policy Policy
}

// NewMachine constructs a machine using clk for timestamps.
func NewMachine(clk clockwork.Clock, policy Policy) *Machine {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Machine{clock: clk, policy: policy}
}

// Policy returns the enforcement policy.
func (m *Machine) Policy() Policy {
	return m.policy
}

func (m *Machine) enter(s *State, action Action) error {
	if s == nil {
		return eris.New("workflow state is nil")
	}

	t, ok := transitions[action]
	if !ok {
		return eris.Wrapf(ErrUnknownAction, "action %s", action)
	}

	if m.policy == Strict && !Allowed(action, s.Current()) {
		return eris.Wrapf(ErrIllegalTransition, "cannot %s from %s", action, s.Current())
	}

	s.Status = t.to
	return nil
}

// SubmitForReview moves the entity to pending_review and stamps submitted_at.
func (m *Machine) SubmitForReview(s *State) error {
	if err := m.enter(s, ActionSubmitForReview); err != nil {
		return err
	}
	now := m.clock.Now().UTC()
	s.SubmittedAt = &now
	return nil
}

// StartReview moves the entity to in_review and records the reviewer.
func (m *Machine) StartReview(s *State, actor string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return eris.New("reviewer is required")
	}
	if err := m.enter(s, ActionStartReview); err != nil {
		return err
	}
	s.ReviewedBy = &actor
	return nil
}

// Approve moves the entity to approved with the reviewer's notes.
func (m *Machine) Approve(s *State, notes string) error {
	if err := m.enter(s, ActionApprove); err != nil {
		return err
	}
	s.ReviewNotes = optionalText(notes)
	return nil
}

// Reject moves the entity to rejected with the reviewer's notes.
func (m *Machine) Reject(s *State, notes string) error {
	if err := m.enter(s, ActionReject); err != nil {
		return err
	}
	s.ReviewNotes = optionalText(notes)
	return nil
}

// Publish makes the entity live. The first publication time is kept on republish.
func (m *Machine) Publish(s *State) error {
	if err := m.enter(s, ActionPublish); err != nil {
		return err
	}
	if s.PublishedAt == nil {
		now := m.clock.Now().UTC()
		s.PublishedAt = &now
	}
	s.ScheduledAt = nil
	return nil
}

// Schedule queues the entity for publication at the given time.
func (m *Machine) Schedule(s *State, at time.Time) error {
	if at.IsZero() {
		return eris.New("schedule date is required")
	}
	if m.policy == Strict && !at.After(m.clock.Now().UTC()) {
		return eris.Wrapf(ErrScheduleInPast, "scheduled at %s", at.Format(time.RFC3339))
	}
	if err := m.enter(s, ActionSchedule); err != nil {
		return err
	}
	at = at.UTC()
	s.ScheduledAt = &at
	return nil
}

// CancelSchedule returns a scheduled entity to draft.
func (m *Machine) CancelSchedule(s *State) error {
	if err := m.enter(s, ActionCancelSchedule); err != nil {
		return err
	}
	s.ScheduledAt = nil
	return nil
}

// Unpublish takes a published entity offline.
func (m *Machine) Unpublish(s *State) error {
	if err := m.enter(s, ActionUnpublish); err != nil {
		return err
	}
	s.PublishedAt = nil
	return nil
}

// Archive moves the entity to archived and stamps archived_at.
func (m *Machine) Archive(s *State) error {
	if err := m.enter(s, ActionArchive); err != nil {
		return err
	}
	now := m.clock.Now().UTC()
	s.ArchivedAt = &now
	return nil
}

// Unarchive returns an archived entity to draft.
func (m *Machine) Unarchive(s *State) error {
	if err := m.enter(s, ActionUnarchive); err != nil {
		return err
	}
	s.ArchivedAt = nil
	return nil
}

// Due reports whether a scheduled entity should be published at now.
func Due(s *State, now time.Time) bool {
	if s == nil || s.Current() != StatusScheduled || s.ScheduledAt == nil {
		return false
	}
	return !s.ScheduledAt.After(now)
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
