package domain

// Persona is a named conversational style handed to the completion service.
type Persona struct {
	ID           PersonaID `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Tagline      string    `json:"tagline" yaml:"tagline"`
	SystemPrompt string    `json:"-" yaml:"system_prompt"`
}

// InputKind describes how a step collects its answer.
type InputKind string

const (
	InputText         InputKind = "text"
	InputSingleChoice InputKind = "single_choice"
	InputMultiChoice  InputKind = "multi_choice"
)

// Step is one prompt of a reflection protocol.
type Step struct {
	Key     StepKey   `json:"key" yaml:"key"`
	Prompt  string    `json:"prompt" yaml:"prompt"`
	Kind    InputKind `json:"kind" yaml:"kind"`
	Options []string  `json:"options,omitempty" yaml:"options,omitempty"`
}

// Protocol is an ordered list of guided reflection steps.
type Protocol struct {
	ID    ProtocolID `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Steps []Step     `json:"steps" yaml:"steps"`
}

// Mode bundles the generation settings of one kind of interaction.
type Mode struct {
	ID              ModeID  `json:"id" yaml:"id"`
	Name            string  `json:"name" yaml:"name"`
	SystemPrompt    string  `json:"-" yaml:"system_prompt"`
	Temperature     float64 `json:"temperature" yaml:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens" yaml:"max_output_tokens"`
}

// EmotionGroup is a named set of emotion tags the router reasons about.
type EmotionGroup struct {
	ID   string   `json:"id" yaml:"id"`
	Tags []string `json:"tags" yaml:"tags"`
}

// SupportContact is shown alongside high priority check-ins.
type SupportContact struct {
	Name    string `json:"name" yaml:"name"`
	Contact string `json:"contact" yaml:"contact"`
	Note    string `json:"note,omitempty" yaml:"note,omitempty"`
}
