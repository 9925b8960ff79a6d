package events

// Event enumerates topics published by the watcher.
type Event string

const (
	EventMarketCheck Event = "market_check"
	EventJobsCreated Event = "jobs_created"
)
