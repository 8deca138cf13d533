package cover

import (
	"net/http"

	"github.com/sells-group/urbancover/internal/classify"
	"github.com/sells-group/urbancover/internal/geometry"
)

// Status is the terminal state of an invocation.
type Status string

const (
	// StatusOK means statistics were computed and the document written.
	StatusOK Status = "ok"
	// StatusNoOverlap means the cloud mask and land-use rasters share no
	// ground; nothing was computed or written.
	StatusNoOverlap Status = "no_overlap"
)

// Messages returned to the caller.
const (
	MessageOK        = "OK"
	MessageNoOverlap = "Input data do not intersect"
)

// Outcome is the result of one invocation.
type Outcome struct {
	InvocationID string
	ItemID       string
	Status       Status
	Message      string
	Stats        classify.Statistics
	// AOIExtent is the clamped residual envelope the statistics cover.
	AOIExtent   geometry.Envelope
	Neighbours  []string
	DocumentKey string
}

// StatusCode is the HTTP-style status of the outcome. Both terminal states
// are successes.
func (o *Outcome) StatusCode() int {
	return http.StatusOK
}

// Response is the invocation reply as the notification hosts expect it.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Response builds the reply for o.
func (o *Outcome) Response() Response {
	return Response{StatusCode: o.StatusCode(), Body: o.Message}
}
