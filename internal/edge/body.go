package edge

import (
	"io"
	"net/http"
)

// collectBody reads an upstream response body to completion. This engine
// emits a response as a single DATA frame, so the whole body is buffered
// before the response is forwarded -- streaming chunked responses is out of
// scope.
func collectBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(resp.Body)
}
