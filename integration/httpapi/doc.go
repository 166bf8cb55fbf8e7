// Package httpapi exposes a relay registry over HTTP.
//
// Routes:
//
//	POST   /relays/{key}                   publish the request body, 202
//	DELETE /relays/{key}                   remove the publisher, 204
//	GET    /relays/{key}?expected=N        listen as server-sent events
//	GET    /relays/{key}/ws?expected=N     listen over a websocket
//	GET    /health                         registry and dependency checks
//	GET    /stats                          registry counters as JSON
//
// Listen accepts an optional timeout (a Go duration such as "3s"), capped by
// the configured maximum. When the timeout or a client disconnect ends a
// listen before the relay completes, the handler removes the publisher so
// late publishes fail with 404 instead of buffering for nobody.
//
// Errors are JSON objects with an "error" field. Unknown keys map to 404,
// a second listener to 409, a full buffer to 429 and bad parameters to 400.
//
// Keys are a single path segment; escape slashes when a key contains them.
//
//	api := httpapi.New(registry, httpapi.WithLogger(log))
//	handler := httpapi.RequestID(httpapi.Logging(log, time.Second)(api))
package httpapi
