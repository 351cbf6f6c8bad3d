package models

import "time"

// RunSummary describes the outcome of one refresh cycle
type RunSummary struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Candidates  []string          `json:"candidates"`
	Refreshed   []string          `json:"refreshed"`
	CarriedOver []string          `json:"carried_over"`
	Dropped     []string          `json:"dropped"`
	Models      map[string]string `json:"models"` // id -> model that produced its content
}

// NewRunSummary creates an empty summary with non-nil collections
func NewRunSummary(runID string, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:       runID,
		StartedAt:   startedAt,
		Candidates:  []string{},
		Refreshed:   []string{},
		CarriedOver: []string{},
		Dropped:     []string{},
		Models:      map[string]string{},
	}
}
