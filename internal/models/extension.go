package models

import "time"

// ExtensionStatus is the device state of an extension as reported by the
// exchange, reduced to the values the panel displays.
type ExtensionStatus string

const (
	StatusIdle        ExtensionStatus = "idle"
	StatusInUse       ExtensionStatus = "inuse"
	StatusBusy        ExtensionStatus = "busy"
	StatusRinging     ExtensionStatus = "ringing"
	StatusUnavailable ExtensionStatus = "unavailable"
	StatusUnknown     ExtensionStatus = "unknown"
)

// MaxStatusHistory bounds the per-extension status change log.
const MaxStatusHistory = 100

// StatusChange records one extension status transition.
type StatusChange struct {
	Timestamp time.Time       `json:"timestamp"`
	From      ExtensionStatus `json:"from"`
	To        ExtensionStatus `json:"to"`
}

// Extension is the live view of one phone line. Created lazily on first
// reference and kept for the lifetime of the process.
type Extension struct {
	ID               string          `json:"extension"`
	Status           ExtensionStatus `json:"status"`
	TotalCalls       int             `json:"totalCalls"`
	AnsweredCalls    int             `json:"answeredCalls"`
	MissedCalls      int             `json:"missedCalls"`
	TotalTalkTime    float64         `json:"totalTalkTime"` // seconds
	CurrentCallStart *time.Time      `json:"currentCallStart,omitempty"`
	StatusHistory    []StatusChange  `json:"statusChanges,omitempty"`
}
