package provider

import (
	"encoding/json"
	"io"
	"net/http"
)

// decodeJSON reads at most 1 MiB of the response body into v.
func decodeJSON(resp *http.Response, v any) error {
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(v)
}
