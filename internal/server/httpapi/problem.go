package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Problem is the error body returned by every endpoint, modelled on RFC 7807.
type Problem struct {
	Type    string              `json:"type"`
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	TraceID string              `json:"traceId,omitempty"`
	Detail  string              `json:"detail,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

const appErrorTitle = "App error"

var problemTypes = map[int]string{
	http.StatusBadRequest:          "https://tools.ietf.org/html/rfc7231#section-6.5.1",
	http.StatusUnauthorized:        "https://tools.ietf.org/html/rfc7235#section-3.1",
	http.StatusNotFound:            "https://tools.ietf.org/html/rfc7231#section-6.5.4",
	http.StatusInternalServerError: "https://tools.ietf.org/html/rfc7231#section-6.6.1",
	http.StatusServiceUnavailable:  "https://tools.ietf.org/html/rfc7231#section-6.6.4",
}

func newProblem(c *gin.Context, status int, title, detail string) *Problem {
	if title == "" {
		title = http.StatusText(status)
	}
	return &Problem{
		Type:    problemTypes[status],
		Title:   title,
		Status:  status,
		TraceID: GetRequestID(c),
		Detail:  detail,
	}
}

func abortWithProblem(c *gin.Context, p *Problem) {
	c.AbortWithStatusJSON(p.Status, p)
}
