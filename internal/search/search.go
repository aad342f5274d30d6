package search

// Result is a single search hit returned to the caller.
type Result struct {
	ThreadID    string `json:"threadId"`
	Title       string `json:"title"`
	ClientName  string `json:"clientName"`
	ProjectType string `json:"projectType"`
	Status      string `json:"status"`
	Path        string `json:"filePath"`
	IsArchived  bool   `json:"isArchived"`
	Snippet     string `json:"snippet,omitempty"`
}

// Query describes a search request. Owner scopes every search: a user only
// ever searches their own workspace.
type Query struct {
	Text            string
	Owner           string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// ThreadRecord is the data we index for a thread.
type ThreadRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ClientName  string `json:"clientName"`
	ProjectType string `json:"projectType"`
	Status      string `json:"status"`
	Owner       string `json:"owner"`
	Path        string `json:"path"`
	Archived    bool   `json:"archived"`
}
