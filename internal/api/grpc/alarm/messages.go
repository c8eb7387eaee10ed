package alarm

import (
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// SystemActor identifies the host and user that issued a request.
type SystemActor struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

// Alarm is the wire form of an alarm record.
type Alarm struct {
	ID          string       `json:"id"`
	TriggerTime time.Time    `json:"trigger_time"`
	Message     string       `json:"message"`
	State       string       `json:"state"`
	CreatedAt   time.Time    `json:"created_at,omitzero"`
	ClosedAt    time.Time    `json:"closed_at,omitzero"`
	CreatedBy   *SystemActor `json:"created_by,omitempty"`
}

// CreateAlarmRequest registers a one-shot alarm.
type CreateAlarmRequest struct {
	TriggerTime time.Time    `json:"trigger_time"`
	Message     string       `json:"message,omitempty"`
	Actor       *SystemActor `json:"actor,omitempty"`
}

// CancelAlarmRequest cancels the alarm with the given id.
type CancelAlarmRequest struct {
	ID string `json:"id"`
}

// GetAlarmRequest looks up one alarm by id.
type GetAlarmRequest struct {
	ID string `json:"id"`
}

// ListAlarmsRequest lists scheduled alarms.
type ListAlarmsRequest struct{}

// AlarmResponse carries a single alarm.
type AlarmResponse struct {
	Alarm *Alarm `json:"alarm"`
}

// ListAlarmsResponse carries scheduled alarms in firing order.
type ListAlarmsResponse struct {
	Alarms []*Alarm `json:"alarms"`
}

// GetAlarm returns the alarm or nil.
func (r *AlarmResponse) GetAlarm() *Alarm {
	if r == nil {
		return nil
	}

	return r.Alarm
}

// GetAlarms returns the alarms or nil.
func (r *ListAlarmsResponse) GetAlarms() []*Alarm {
	if r == nil {
		return nil
	}

	return r.Alarms
}

// FromDomain converts a domain alarm to its wire form.
func FromDomain(a domain.Alarm) *Alarm {
	return &Alarm{
		ID:          a.ID,
		TriggerTime: a.TriggerTime,
		Message:     a.Message,
		State:       string(a.State),
		CreatedAt:   a.CreatedAt,
		ClosedAt:    a.ClosedAt,
		CreatedBy:   FromDomainActor(a.CreatedBy),
	}
}

// ToDomain converts the wire form back to a domain alarm.
func (a *Alarm) ToDomain() domain.Alarm {
	if a == nil {
		return domain.Alarm{}
	}

	return domain.Alarm{
		ID:          a.ID,
		TriggerTime: a.TriggerTime,
		Message:     a.Message,
		State:       domain.State(a.State),
		CreatedAt:   a.CreatedAt,
		ClosedAt:    a.ClosedAt,
		CreatedBy:   a.CreatedBy.ToDomain(),
	}
}

// FromDomainActor converts a domain actor; nil stays nil.
func FromDomainActor(actor *domain.Actor) *SystemActor {
	if actor == nil {
		return nil
	}

	return &SystemActor{
		Hostname: actor.Hostname,
		Username: actor.Username,
	}
}

// ToDomain converts the wire actor; nil stays nil.
func (a *SystemActor) ToDomain() *domain.Actor {
	if a == nil {
		return nil
	}

	return &domain.Actor{
		Hostname: a.Hostname,
		Username: a.Username,
	}
}
