package routes

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/selmo/Tagdstiller-sub001/internal/server/middleware"
	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
)

// GetAnalysisResultHandler returns the integrated result of a completed run.
func GetAnalysisResultHandler(c echo.Context) error {
	type getResultData struct {
		RunID string `param:"id" validate:"required"`
	}

	data := new(getResultData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	store := c.(*middleware.AppContext).App.Store
	manifest, err := store.ReadManifest(data.RunID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Analysis not found"})
		}
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if manifest.Status != artifact.StatusCompleted {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "Analysis is " + string(manifest.Status) + ", result not available",
		})
	}

	raw, err := store.ReadIntegrated(data.RunID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Analysis result not found"})
		}
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSONBlob(http.StatusOK, raw)
}
