package api

import (
	"net/http"
)

type headerOpt struct {
	name  string
	value string
}

// Bearer authenticates the request with an API key.
func Bearer(apiKey string) Opt {
	return headerOpt{name: "Authorization", value: "Bearer " + apiKey}
}

// IdempotencyKey lets the endpoint drop a request it already accepted, when
// the same call is retried or fails over to another domain.
func IdempotencyKey(key string) Opt {
	return headerOpt{name: "Idempotency-Key", value: key}
}

func (opt headerOpt) Do(_ defaultClient, req *http.Request) {
	req.Header.Set(opt.name, opt.value)
}
