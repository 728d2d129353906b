package constant

const (
	// HeaderUserAgent is the HTTP User-Agent header key.
	HeaderUserAgent = "User-Agent"
	// HeaderID is the request identifier header key.
	HeaderID = "X-Request-Id"
	// HeaderTraceID is the response header exposing the request's trace identifier.
	HeaderTraceID = "X-Trace-Id"
	// HeaderReferer is the HTTP Referer header key.
	HeaderReferer = "Referer"
	// Authorization is the HTTP Authorization header key.
	Authorization = "Authorization"
	// Bearer is the HTTP Bearer auth scheme token.
	Bearer = "Bearer"
	// WWWAuthenticate is the HTTP WWW-Authenticate header key.
	WWWAuthenticate = "WWW-Authenticate"
)
