package api

import (
	"net/http"

	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/notify"
	"github.com/grcwatch/notify-engine/internal/scheduler"
	"github.com/labstack/echo/v4"
)

// Controller holds the route handlers.
type Controller struct {
	engine Engine
	scans  ScanRunner
	log    logger.Logger
}

// PurgeRequest is the body of POST /retention/purge.
type PurgeRequest struct {
	OlderThanDays int `json:"olderThanDays"`
}

// TriggerEvent handles POST /events.
func (c *Controller) TriggerEvent(ctx echo.Context) error {
	var ev notify.Event
	if err := ctx.Bind(&ev); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if ev.EntityType == "" || ev.EventType == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "entityType and eventType are required"})
	}

	res, err := c.engine.TriggerEvent(ctx.Request().Context(), ev)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to trigger event")
	}
	return ctx.JSON(http.StatusOK, res)
}

// TriggerApproval handles POST /approvals.
func (c *Controller) TriggerApproval(ctx echo.Context) error {
	var n notify.ApprovalNotice
	if err := ctx.Bind(&n); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if n.AssignmentID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "assignmentId is required"})
	}

	res, err := c.engine.TriggerApprovalNotification(ctx.Request().Context(), n)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to trigger approval notification")
	}
	return ctx.JSON(http.StatusOK, res)
}

// RunScan handles POST /scans/:scan.
func (c *Controller) RunScan(ctx echo.Context) error {
	name := ctx.Param("scan")
	switch name {
	case scheduler.ScanAlerts, scheduler.ScanExpirations, scheduler.ScanOverdue:
	default:
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Unknown scan"})
	}

	res, err := c.scans.Run(ctx.Request().Context(), name)
	if err != nil {
		if errors.Is(err, scheduler.ErrScanBusy) {
			return ctx.JSON(http.StatusConflict, map[string]string{"error": "Scan already running"})
		}
		return c.HandleError(ctx, err, "Scan failed")
	}
	return ctx.JSON(http.StatusOK, res)
}

// Purge handles POST /retention/purge. An empty body uses the default retention.
func (c *Controller) Purge(ctx echo.Context) error {
	var req PurgeRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&req); err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}
	}

	res, err := c.engine.PurgeOldNotifications(ctx.Request().Context(), req.OlderThanDays)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to purge notifications")
	}
	return ctx.JSON(http.StatusOK, res)
}

// GetSchema handles GET /schema.
func (c *Controller) GetSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, notify.GetSchema())
}

// HandleError maps engine errors to a status code and logs server-side failures.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	status := http.StatusInternalServerError
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.GetCategory() == errors.CategoryValidation {
		status = http.StatusBadRequest
		message = ee.Error()
	}
	if status >= http.StatusInternalServerError {
		c.log.Error(message,
			logger.String("path", ctx.Path()),
			logger.Error(err))
	}
	return ctx.JSON(status, map[string]string{"error": message})
}
