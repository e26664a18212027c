package models

// Import stream event names. Each SSE frame is
// "event: <name>\ndata: <json>\n\n"; Complete or Error is always last.
const (
	EventStatus   = "status"
	EventInit     = "init"
	EventProgress = "progress"
	EventSkipped  = "skipped"
	EventComplete = "complete"
	EventError    = "error"
)

// Import pipeline phases reported in status and progress events.
const (
	PhaseParsing     = "parsing"
	PhaseValidating  = "validating"
	PhaseDiscovering = "discovering"
	PhaseAssigning   = "assigning"
	PhaseImporting   = "importing"
	PhaseSessioning  = "sessioning"
)

// ImportEvent is one frame on the orchestrator's event sink. Data carries
// one of the payload structs below, keyed by Name.
type ImportEvent struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// StatusPayload is a lifecycle tick.
type StatusPayload struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// InitPayload is emitted once, after parse and in-file dedupe.
type InitPayload struct {
	TotalInFile      int `json:"totalInFile"`
	UniqueBookmarks  int `json:"uniqueBookmarks"`
	DuplicatesInFile int `json:"duplicatesInFile"`
}

// ProgressPayload is emitted per processed item on the default path and
// every 10 items on the custom path.
type ProgressPayload struct {
	Processed        int    `json:"processed"`
	Total            int    `json:"total"`
	Percent          int    `json:"percent"`
	CurrentBookmark  string `json:"currentBookmark"`
	NewBookmarks     int    `json:"newBookmarks"`
	UpdatedBookmarks int    `json:"updatedBookmarks"`
	Skipped          int    `json:"skipped"`
	Failed           int    `json:"failed"`
	Phase            string `json:"phase,omitempty"`
}

// SkipReasonInvalidURL is the user-facing reason attached to bookmarks
// dropped by the reachability check.
const SkipReasonInvalidURL = "Invalid URL"

// SkippedPayload is emitted per skipped bookmark with the reason.
type SkippedPayload struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// CompletePayload is the terminal success event.
type CompletePayload struct {
	ImportSessionID         int64 `json:"importSessionId"`
	TotalInFile             int   `json:"totalInFile"`
	UniqueBookmarks         int   `json:"uniqueBookmarks"`
	DuplicatesInFile        int   `json:"duplicatesInFile"`
	NewBookmarks            int   `json:"newBookmarks"`
	UpdatedBookmarks        int   `json:"updatedBookmarks"`
	SuccessfulBookmarks     int   `json:"successfulBookmarks"`
	FailedBookmarks         int   `json:"failedBookmarks"`
	SkippedBookmarks        int   `json:"skippedBookmarks"`
	CustomCategoriesCreated int   `json:"customCategoriesCreated"`
	AIAssignments           int   `json:"aiAssignments"`
}

// ErrorPayload is the terminal failure event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// AnalyzeResult is the success envelope body of the analyze endpoint.
type AnalyzeResult struct {
	DiscoveryResult *DiscoveryResult `json:"discoveryResult"`
	Validation      ValidationResult `json:"validation"`
	Stats           TaxonomyStats    `json:"stats"`
	BookmarkCount   int              `json:"bookmarkCount"`
}
