package api

// AnalyticsResponse wraps the result of an analytics query
type AnalyticsResponse struct {
	Operation string      `json:"operation"`
	Dataset   string      `json:"dataset"`
	Cached    bool        `json:"cached"`
	Result    interface{} `json:"result"`
}

// RetryStatusResponse reports the load retry budget of a dataset
type RetryStatusResponse struct {
	Dataset    string `json:"dataset"`
	RetryCount int    `json:"retry_count"`
	CanRetry   bool   `json:"can_retry"`
}
