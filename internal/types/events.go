package types

type EventType string

const (
	EventJobCreated EventType = "job.created"
	EventJobStage   EventType = "job.stage"
	EventJobOutput  EventType = "job.output"
	EventJobFailed  EventType = "job.failed"
	EventJobReady   EventType = "job.ready"
)

type StageEventData struct {
	Stage string `msgpack:"stage" json:"stage"`
}

type OutputEventData struct {
	Index int    `msgpack:"index" json:"index"`
	URL   string `msgpack:"url" json:"url"`
}

type FailureEventData struct {
	Stage   string `msgpack:"stage" json:"stage"`
	Message string `msgpack:"message" json:"message"`
}
