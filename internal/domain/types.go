package domain

import "time"

type SessionID string
type UserID string
type JournalEntryID string

type PersonaID string
type ProtocolID string
type ModeID string
type StepKey string

type Timestamp = time.Time

// Priority marks how urgently a check-in should be handled.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high" // crisis resources must be shown
)

const (
	PersonaNova  PersonaID = "nova"  // momentum coach
	PersonaSol   PersonaID = "sol"   // compassionate listener
	PersonaAtlas PersonaID = "atlas" // values guide
	PersonaWren  PersonaID = "wren"  // evening companion
	PersonaSage  PersonaID = "sage"  // pattern spotter
)

const (
	ProtocolGrounding           ProtocolID = "grounding"
	ProtocolReflectiveListening ProtocolID = "reflective-listening"
	ProtocolThoughtRecord       ProtocolID = "thought-record"
	ProtocolValuesCheck         ProtocolID = "values-check"
	ProtocolGratitude           ProtocolID = "gratitude"
)

const (
	ModeDebrief ModeID = "debrief" // free entry analysis
	ModeGuided  ModeID = "guided"  // protocol completion
	ModeChat    ModeID = "chat"    // open conversation
	ModeRecap   ModeID = "recap"   // weekly recap
)

const (
	MinMood = 0
	MaxMood = 10
)

// ClampMood keeps a mood score inside [MinMood, MaxMood].
func ClampMood(m int) int {
	if m < MinMood {
		return MinMood
	}
	if m > MaxMood {
		return MaxMood
	}
	return m
}
