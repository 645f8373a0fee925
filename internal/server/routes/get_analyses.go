package routes

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/selmo/Tagdstiller-sub001/internal/server/middleware"
)

// GetAnalysisHandler returns the manifest of one analysis run.
func GetAnalysisHandler(c echo.Context) error {
	type getAnalysisData struct {
		RunID string `param:"id" validate:"required"`
	}

	data := new(getAnalysisData)
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

	manifest, err := c.(*middleware.AppContext).App.Store.ReadManifest(data.RunID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Analysis not found"})
		}
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, manifest)
}
