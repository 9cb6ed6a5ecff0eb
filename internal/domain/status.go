package domain

import "time"

// Liveness is the tri-state result of a server status check
type Liveness string

const (
	LivenessOnline  Liveness = "online"
	LivenessOffline Liveness = "offline"
	LivenessUnknown Liveness = "unknown"
)

// Verdict is the outcome of a single reachability probe.
// Reason is empty for online servers.
type Verdict struct {
	Status  Liveness
	Reason  string
	Latency time.Duration
}

// StatusReport is a verdict bound to the server it was computed for.
type StatusReport struct {
	ServerID  string
	Verdict   Verdict
	CheckedAt time.Time
}
