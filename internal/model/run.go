package model

import "time"

// RunStatus represents the current state of a fund refresh run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one refresh of one fund's data file.
type Run struct {
	ID        string     `json:"id"`
	FundID    string     `json:"fund_id"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// StageDrops counts companies removed by each filter stage.
type StageDrops struct {
	Geography int `json:"geography"`
	FundRule  int `json:"fund_rule"`
	Defunct   int `json:"defunct"`
	NoJobs    int `json:"no_jobs"`
}

// Total returns the number of companies removed across all stages.
func (d StageDrops) Total() int {
	return d.Geography + d.FundRule + d.Defunct + d.NoJobs
}

// RunResult holds the outcome of a refresh run.
type RunResult struct {
	FundID              string     `json:"fund_id"`
	Fetched             int        `json:"fetched"`
	Normalized          int        `json:"normalized"`
	Skipped             int        `json:"skipped"`
	Duplicates          int        `json:"duplicates"`
	Kept                int        `json:"kept"`
	StageDrops          StageDrops `json:"stage_drops"`
	TotalJobs           int        `json:"total_jobs"`
	InternshipCompanies int        `json:"internship_companies"`
	DatedCompanies      int        `json:"dated_companies"`
	Unresolved          int        `json:"unresolved"`
	FailedPages         int        `json:"failed_pages"`
	UnmappedSectors     []string   `json:"unmapped_sectors,omitempty"`
	DurationMS          int64      `json:"duration_ms"`

	// DateScanFailed is set when the job date scan returned no usable
	// result; every kept company then counts as unresolved.
	DateScanFailed bool `json:"date_scan_failed,omitempty"`

	// InternshipFetchFailed is set when internship counts could not be
	// fetched and previous values were carried.
	InternshipFetchFailed bool `json:"internship_fetch_failed,omitempty"`
}
