// Package alarm contains core domain types for alarm scheduling.
//
// It defines Alarm (one scheduled wake-up request and its lifecycle), the
// State enum, the Actor who requested the alarm and the sentinel errors
// shared by the store, scheduler, engine and transport layers.
package alarm
