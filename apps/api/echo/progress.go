package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/progress"
)

type progressApi struct {
	svc progress.Service
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc progress.Service) {
	api := progressApi{svc: svc}

	pg := g.Group("/progress", jwt)
	pg.POST("/chunks", api.updateChunkProgress)
	pg.GET("/last-accessed", api.lastAccessed)
	pg.GET("/welcome-back", api.welcomeBack)
	pg.DELETE("/queue", api.flushQueue)
}

// Handlers

func (api *progressApi) updateChunkProgress(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	var data UpdateChunkProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChunkProgressRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	prog, err := api.svc.UpdateChunkProgress(
		ctx.Request().Context(), userID, data.ContentChunkID, progress.Status(data.Status),
		progress.UpdateOptions{UpdateParents: data.UpdateParents, DeferChunkUpdates: data.DeferChunkUpdates},
	)
	if err != nil {
		return errors.Wrap(err, "updating chunk progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) lastAccessed(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	lastContent, err := api.svc.GetLastAccessedContent(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "getting last accessed content")
	}
	return ctx.JSON(http.StatusOK, lastContent)
}

func (api *progressApi) welcomeBack(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	rctx, err := api.svc.GetReturningUserContext(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "getting returning user context")
	}
	return ctx.JSON(http.StatusOK, rctx)
}

func (api *progressApi) flushQueue(ctx echo.Context) error {
	if _, err := getContextUserID(ctx); err != nil {
		return err
	}

	if err := api.svc.FlushDeferredUpdates(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "flushing progress queue")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "progress queue flushed"})
}

type (
	UpdateChunkProgressRequest struct {
		ContentChunkID    string `json:"content_chunk_id" validate:"required,uuid4"`
		Status            string `json:"status" validate:"required,progressstatus"`
		UpdateParents     bool   `json:"update_parents"`
		DeferChunkUpdates bool   `json:"defer_chunk_updates"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (r *UpdateChunkProgressRequest) Validate() error {
	r.ContentChunkID = core.CleanString(r.ContentChunkID, true /* lower */)
	r.Status = core.CleanString(r.Status, true /* lower */)
	return core.Validate.Struct(r)
}
