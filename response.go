package servact

import "encoding/json"

// response is the internal envelope type for successful outcomes.
// The validated result is wrapped in a {"result": ...} structure.
type response struct {
	Result any `json:"result"`
}

// errorResponse is the internal envelope type for failures.
// The failure is wrapped in an {"error": {...}} structure.
type errorResponse struct {
	Error *Error `json:"error"`
}

// encodeResponse writes a successful response to the ResponseWriter.
func encodeResponse(w jsonWriter, result any) error {
	return json.NewEncoder(w).Encode(response{Result: result})
}

// encodeErrorResponse writes an error response to the ResponseWriter.
func encodeErrorResponse(w jsonWriter, err *Error) error {
	return json.NewEncoder(w).Encode(errorResponse{Error: err})
}

// jsonWriter is satisfied by http.ResponseWriter and allows testing.
type jsonWriter interface {
	Write([]byte) (int, error)
}
