package echoapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/catalog"
	"github.com/mansourkira/evoluflow/core/resource"
	metricsvc "github.com/mansourkira/evoluflow/services/metrics"
)

// proxyRoutes are the operations of every catalog resource; the backend path is the same.
var proxyRoutes = []struct {
	method    string
	operation string
}{
	{http.MethodGet, "list"},
	{http.MethodPost, "add"},
	{http.MethodPut, "update"},
	{http.MethodDelete, "delete"},
	{http.MethodPost, "get"},
}

type proxyAPI struct {
	tr      *resource.Transport
	logger  core.Logger
	metrics *metricsvc.Metrics
}

func registerProxyAPI(g *echo.Group, entries []catalog.Entry, deps ServerDeps) {
	api := proxyAPI{
		tr:      deps.Backend,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}

	authed := tokenMiddleware("")
	for _, e := range entries {
		for _, r := range proxyRoutes {
			g.Add(r.method, "/"+e.Resource.Name+"/"+r.operation, api.forward(e.Resource.Name, r.operation), authed)
		}
	}
	g.Any("/:resource/:operation", unknownRoute)
	g.Any("/:resource", unknownRoute)
}

func unknownRoute(echo.Context) error {
	return errUnknownRoute
}

// forward relays the request to the backend and its answer, status and body, back verbatim.
func (api *proxyAPI) forward(res, op string) echo.HandlerFunc {
	path := "/" + res + "/" + op
	return func(ctx echo.Context) error {
		req := ctx.Request()

		var body []byte
		if req.Method != http.MethodGet && req.Body != nil {
			var err error
			if body, err = io.ReadAll(req.Body); err != nil {
				return errors.Wrap(err, "reading request body")
			}
			if len(body) == 0 {
				body = nil
			}
		}

		reqCtx := resource.WithRequestID(req.Context(), ctx.Response().Header().Get(echo.HeaderXRequestID))
		start := time.Now()
		code, data, err := api.tr.Do(reqCtx, req.Method, path, contextToken(ctx), body)
		api.metrics.ProxyDuration.WithLabelValues(res, op).Observe(time.Since(start).Seconds())
		if err != nil {
			api.metrics.ProxyFailures.WithLabelValues(res).Inc()
			api.metrics.ProxyRequests.WithLabelValues(res, op, strconv.Itoa(errBackendFailure.Code)).Inc()
			return errors.Wrapf(err, "forwarding %s %s", req.Method, path)
		}
		api.metrics.ProxyRequests.WithLabelValues(res, op, strconv.Itoa(code)).Inc()

		if len(data) == 0 {
			return ctx.NoContent(code)
		}
		return ctx.Blob(code, echo.MIMEApplicationJSONCharsetUTF8, data)
	}
}
