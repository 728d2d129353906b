package http

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/edupass/edupass-ledger/edupass"
	constant "github.com/edupass/edupass-ledger/edupass/constants"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestInfo stores HTTP access log data for one request.
type RequestInfo struct {
	Method        string
	Username      string
	URI           string
	Referer       string
	RemoteAddress string
	Status        int
	Date          time.Time
	Duration      time.Duration
	UserAgent     string
	TraceID       string
	Protocol      string
	Size          int
}

// ResponseMetricsWrapper collects response data such as status code and size.
type ResponseMetricsWrapper struct {
	Context    *fiber.Ctx
	StatusCode int
	Size       int
}

// NewRequestInfo creates an instance of RequestInfo. Caller-controlled
// values are sanitized before they can reach a log line.
func NewRequestInfo(c *fiber.Ctx) *RequestInfo {
	username, referer := "-", "-"
	rawURL := string(c.Request().URI().FullURI())

	parsedURL, err := url.Parse(rawURL)
	if err == nil && parsedURL.User != nil {
		if name := parsedURL.User.Username(); name != "" {
			username = log.SanitizeString(name)
		}
	}

	if c.Get(constant.HeaderReferer) != "" {
		referer = log.SanitizeString(c.Get(constant.HeaderReferer))
	}

	return &RequestInfo{
		TraceID:       c.Get(constant.HeaderID),
		Method:        c.Method(),
		URI:           log.SanitizeString(c.OriginalURL()),
		Username:      username,
		Referer:       referer,
		UserAgent:     log.SanitizeString(c.Get(constant.HeaderUserAgent)),
		RemoteAddress: c.IP(),
		Protocol:      c.Protocol(),
		Date:          time.Now().UTC(),
	}
}

// CLFString produces a log entry format similar to Common Log Format (CLF)
// Ref: https://httpd.apache.org/docs/trunk/logs.html#common
func (r *RequestInfo) CLFString() string {
	return strings.Join([]string{
		r.RemoteAddress,
		"-",
		r.Username,
		r.Protocol,
		r.Date.Format("[02/Jan/2006:15:04:05 -0700]"),
		`"` + r.Method + " " + r.URI + `"`,
		strconv.Itoa(r.Status),
		strconv.Itoa(r.Size),
		r.Referer,
		r.UserAgent,
	}, " ")
}

// String implements fmt.Stringer and produces a log entry using CLFString.
func (r *RequestInfo) String() string {
	return r.CLFString()
}

// FinishRequestInfo calculates the duration of RequestInfo automatically
// and records the StatusCode and Size passed by ResponseMetricsWrapper.
func (r *RequestInfo) FinishRequestInfo(rw *ResponseMetricsWrapper) {
	r.Duration = time.Now().UTC().Sub(r.Date)
	r.Status = rw.StatusCode
	r.Size = rw.Size
}

type logMiddleware struct {
	Logger log.Logger
}

// LogMiddlewareOption customizes the log middleware.
type LogMiddlewareOption func(l *logMiddleware)

// WithCustomLogger is a functional option for the log middleware.
func WithCustomLogger(logger log.Logger) LogMiddlewareOption {
	return func(l *logMiddleware) {
		if logger != nil {
			l.Logger = logger
		}
	}
}

// buildOpts creates an instance of logMiddleware with options.
func buildOpts(opts ...LogMiddlewareOption) *logMiddleware {
	mid := &logMiddleware{
		Logger: log.NewNop(),
	}

	for _, opt := range opts {
		opt(mid)
	}

	return mid
}

// WithHTTPLogging is a middleware to log access to the http server.
// It logs access according to Apache Standard Logs which uses Common Log
// Format (CLF). Ref: https://httpd.apache.org/docs/trunk/logs.html#common
func WithHTTPLogging(opts ...LogMiddlewareOption) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}

		setRequestHeaderID(c)

		info := NewRequestInfo(c)

		headerID := c.Get(constant.HeaderID)

		mid := buildOpts(opts...)
		logger := mid.Logger.
			With(log.String(constant.HeaderID, headerID)).
			With(log.String("message_prefix", headerID+constant.LoggerDefaultSeparator))

		ctx := edupass.ContextWithLogger(c.UserContext(), logger)
		c.SetUserContext(ctx)

		err := c.Next()

		rw := ResponseMetricsWrapper{
			Context:    c,
			StatusCode: c.Response().StatusCode(),
			Size:       len(c.Response().Body()),
		}

		info.FinishRequestInfo(&rw)

		logger.Log(c.UserContext(), log.LevelInfo, info.CLFString())

		return err
	}
}

// setRequestHeaderID assigns a request identifier when the caller did not
// send one, mirrors it on the response, and stores it in the user context.
func setRequestHeaderID(c *fiber.Ctx) {
	headerID := strings.TrimSpace(c.Get(constant.HeaderID))

	if headerID == "" {
		headerID = uuid.New().String()
		c.Request().Header.Set(constant.HeaderID, headerID)
	}

	c.Response().Header.Set(constant.HeaderID, headerID)

	ctx := edupass.ContextWithHeaderID(c.UserContext(), headerID)
	c.SetUserContext(ctx)
}
