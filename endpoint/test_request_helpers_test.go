package endpoint

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

// requestSpec describes one handler invocation. registerPath carries the
// route pattern (with ":id" style params), requestPath the concrete URL.
type requestSpec struct {
	method       string
	registerPath string
	requestPath  string
	handler      gin.HandlerFunc
	body         interface{}
	headers      map[string]string
}

// encodeRequestBody turns a spec body into wire bytes. Strings pass through
// unencoded so tests can send deliberately malformed JSON.
func encodeRequestBody(body interface{}) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

// doRequestWithHandler mounts the handler on the engine, serves the request
// and decodes the JSON envelope when the handler wrote one.
func doRequestWithHandler(r *gin.Engine, spec requestSpec) (*httptest.ResponseRecorder, map[string]interface{}, error) {
	payload, err := encodeRequestBody(spec.body)
	if err != nil {
		return nil, nil, err
	}

	r.Handle(spec.method, spec.registerPath, spec.handler)

	req := httptest.NewRequest(spec.method, spec.requestPath, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range spec.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.Len() == 0 {
		return w, nil, nil
	}
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		return w, nil, err
	}
	return w, response, nil
}
