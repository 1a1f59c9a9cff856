package store

import "time"

// RunSummary is one archived run as listed from the runs table.
type RunSummary struct {
	ID         string    `json:"id"`
	Objective  string    `json:"objective"`
	Status     string    `json:"status"` // completed, failed
	Error      string    `json:"error,omitempty"`
	Plan       []string  `json:"plan"`
	StepsDone  int       `json:"steps_done"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Report is one executed step of an archived run.
type Report struct {
	Step   int    `json:"step"`
	Task   string `json:"task"`
	Report string `json:"report"`
}
