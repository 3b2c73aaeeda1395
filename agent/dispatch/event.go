package dispatch

// Event names sent to the client.
const (
	EventStatus      = "status"
	EventResults     = "results"
	EventLastLine    = "lastline"
	EventStateResult = "stateresult"
)

// Event is a single server->client event. Data is JSON-encoded as-is.
type Event struct {
	Name string
	Data any
}
