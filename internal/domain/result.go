package domain

import "time"

// ProbeResult is the outcome of one probe attempt. It is built once and
// never modified afterwards.
type ProbeResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Output   string    `json:"output,omitempty"`
	Error    string    `json:"error,omitempty"`
	Cause    error     `json:"-"`
	Disabled bool      `json:"disabled,omitempty"`
	Time     time.Time `json:"time"`
}

func Success(message string) ProbeResult {
	return ProbeResult{Success: true, Message: message, Time: time.Now().UTC()}
}

func Failure(message, detail string) ProbeResult {
	return ProbeResult{Message: message, Error: detail, Time: time.Now().UTC()}
}
