package server

type Status string

const (
	StatusOK      Status = "OK"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Status Status      `json:"status,omitempty"`
	Value  interface{} `json:"value,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func newValueResponse(value interface{}) Response {
	return Response{Status: StatusSuccess, Value: value}
}

func newErrorResponse(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}
