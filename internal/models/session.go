package models

import "time"

// ImportSession is the per-run record written exactly once at the end of
// each import, including partial and cancelled runs.
// Counter invariant: Successful + Failed + Skipped = unique + in-file duplicates.
type ImportSession struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	TotalParsed int       `json:"total_parsed"`
	Successful  int       `json:"successful"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	CreatedAt   time.Time `json:"created_at"`
}
