// Package httpapi implements the read-side query surface (spec.md §6): a
// JWT-protected HTTP API for browsing ingested collections — table listing,
// row counts, ad-hoc queries — plus a websocket stream of workflow run
// status, layered on top of the same row store and taskrt client the
// ingestion pipelines write through. Grounded on the teacher's
// api/jwt.go SetupRoutes shape and cli/root.go's echo middleware stack,
// generalized from flow-process publishing to read-only query handlers.
package httpapi

import (
	"context"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/liquidinvestigations/hoover3-sub000/common"
	"github.com/liquidinvestigations/hoover3-sub000/session"
	"github.com/liquidinvestigations/hoover3-sub000/taskrt"
)

// Deps bundles the live resources the query and websocket handlers need,
// resolved once at process bootstrap, matching the Deps-struct convention
// the ingest pipelines (scan/hashplan/process) already use.
type Deps struct {
	RowStore   *session.RowStore
	Redis      *redis.Client
	TaskClient *taskrt.Client
	JWTSecret  string
	Logger     *common.ContextLogger
}

// NewServer builds an Echo instance with the standard middleware stack
// (Logger, Recover, CORS — same three the teacher's runServer installs)
// plus the JWT-protected query and websocket routes.
func NewServer(deps Deps) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h := &handlers{deps: deps}

	protected := e.Group("/api")
	protected.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(deps.JWTSecret),
		TokenLookup: "header:Authorization:Bearer ",
	}))

	protected.GET("/collections/:id/tables", h.listTables)
	protected.GET("/collections/:id/tables/:table/count", h.rowCount)
	protected.POST("/collections/:id/query", h.runQuery)
	protected.GET("/collections/:id/ws", h.streamWorkflowStatus)

	return e
}

// Run starts e on addr and blocks until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout — mirroring the teacher's
// start-in-goroutine / signal.Notify / e.Shutdown(ctx) sequence in
// cli/root.go's runServer, generalized to take a caller-owned context
// instead of installing its own signal handler.
func Run(ctx context.Context, e *echo.Echo, addr string, shutdownTimeout time.Duration, logger *common.ContextLogger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("httpapi: listening on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

type handlers struct {
	deps Deps
}
