// Package httpclient sends the load generator's requests.
//
// [NewClient] builds an *http.Client whose transport keeps enough idle
// connections to the target to sustain the configured rate. [Sender] wraps
// it as a runner.Sender:
//
//	sender := httpclient.NewSender(httpclient.NewClient(30*time.Second), provider)
//	status, err := sender.Send(ctx, http.MethodGet, "http://localhost:8888/shop-item")
//
// Responses with a status code of 400 or above come back as a
// *runner.HTTPError carrying the first kilobyte of the body. When a tracing
// provider is supplied each request gets a client span, and the W3C trace
// context is injected into the request headers unless propagation is off.
package httpclient
