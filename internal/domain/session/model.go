package session

// Sections recognized in a session note file. Entries for any other section
// are appended as a new heading at the end of the file.
const (
	SectionGoals     = "Goals"
	SectionProgress  = "Progress"
	SectionDecisions = "Decisions"
	SectionIssues    = "Issues"
	SectionNextSteps = "Next Steps"
)

// CreateRequest describes a note entry to record.
type CreateRequest struct {
	Content     string
	Section     string // defaults to Progress
	SessionName string // defaults to <YYYY-MM-DD>-session
}

// CreateResult reports where a note entry landed.
type CreateResult struct {
	Success      bool   `json:"success"`
	SessionFile  string `json:"session_file"`
	ContentAdded string `json:"content_added"`
	Timestamp    string `json:"timestamp"`
	Section      string `json:"section"`
	Message      string `json:"message"`
}

// ReadRequest selects which session file to read.
type ReadRequest struct {
	SessionName string // empty selects the most recent within DaysBack
	DaysBack    int    // defaults to 7
}

// ReadResult carries the content of one session file.
type ReadResult struct {
	Success      bool   `json:"success"`
	SessionFile  string `json:"session_file,omitempty"`
	Content      string `json:"content,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Message      string `json:"message"`
}

// FileInfo describes one session file on disk.
type FileInfo struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
	AgeDays      int    `json:"age_days"`
}

// ListResult enumerates session files within a window.
type ListResult struct {
	Success  bool       `json:"success"`
	Sessions []FileInfo `json:"sessions"`
	Count    int        `json:"count"`
	DaysBack int        `json:"days_back"`
	Message  string     `json:"message"`
}
