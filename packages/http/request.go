package http

import "net/http"

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// NewHeadRequest builds the HEAD request every probe except schema validation uses.
func NewHeadRequest(requestURL string) *Request {
	return NewRequest(http.MethodHead, requestURL)
}
