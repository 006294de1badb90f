// Package api serves statement parsing and document exports over HTTP.
package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/insightdelivered/moneylens/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewApp builds the fiber app with middleware and all routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "moneylens",
		BodyLimit:             h.Config.Server.BodyLimit(),
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
		// Route params end up in the file store and must outlive the request.
		Immutable: true,
	})

	origins := "*"
	if len(h.Config.Server.AllowedOrigins) > 0 {
		origins = strings.Join(h.Config.Server.AllowedOrigins, ",")
	}

	app.Use(
		requestid.New(),
		h.logRequests,
		fiberrecover.New(),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: "GET,POST,DELETE,OPTIONS",
			AllowHeaders: "Origin, Content-Type, Accept",
		}),
	)
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/healthz", h.HandleHealth)
	app.Get("/version", h.HandleVersion)
	app.Get("/metrics", adaptor.HTTPHandler(h.Metrics.Handler()))

	app.Post("/parse/pdf", h.HandleParsePDF)
	app.Post("/export/csv", h.HandleExportCSV)
	app.Post("/export/xlsx", h.HandleExportXLSX)

	app.Post("/upload", h.HandleUpload)
	app.Post("/process/:id", h.HandleProcess)
	app.Get("/result/:id", h.HandleResult)
	app.Get("/files", h.HandleListFiles)
	app.Delete("/files/:id", h.HandleDeleteFile)
	app.Post("/export/totals", h.HandleExportTotals)
	app.Post("/export/summary", h.HandleExportSummary)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Success: false, Error: err.Error()})
}

// logRequests puts a request-scoped logger in the user context and logs
// one line per request once the error handler has set the final status.
func (h *Handler) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	log := h.Log.With().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Logger()
	c.SetUserContext(logger.WithContext(c.UserContext(), log))

	if chainErr := c.Next(); chainErr != nil {
		if err := c.App().ErrorHandler(c, chainErr); err != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	ev := log.Info()
	if status >= fiber.StatusInternalServerError {
		ev = log.Error()
	} else if status >= fiber.StatusBadRequest {
		ev = log.Warn()
	}
	ev.Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("request")
	return nil
}
