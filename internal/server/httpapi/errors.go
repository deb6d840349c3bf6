package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/labstack/echo/v4"
)

// mapServiceError translates orchestrator errors into HTTP responses.
// Limit errors carry the values a client needs for an upgrade prompt.
func (s *Server) mapServiceError(c echo.Context, err error) error {
	var le *common.LimitError
	if errors.As(err, &le) {
		switch {
		case errors.Is(le, common.ErrFileTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
				"code":        "FileTooLarge",
				"error":       "file exceeds the maximum size for your plan",
				"currentTier": le.Tier,
				"limitBytes":  le.Limit,
				"actualBytes": le.Actual,
			})
		case errors.Is(le, common.ErrTierNotEligible):
			return c.JSON(http.StatusForbidden, echo.Map{
				"code":        "TierNotEligible",
				"error":       "multipart uploads are only available for Pro/Business tiers",
				"currentTier": le.Tier,
			})
		case errors.Is(le, common.ErrMonthlyLimitReached):
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"code":        "MonthlyLimitReached",
				"error":       "monthly upload limit reached",
				"currentTier": le.Tier,
				"limit":       le.Limit,
			})
		}
	}

	switch {
	case errors.Is(err, common.ErrNotFoundInStorage):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "NotFoundInStorage"})
	case errors.Is(err, common.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "NotFound"})
	case errors.Is(err, common.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "Expired"})
	case errors.Is(err, common.ErrPending):
		return c.JSON(http.StatusLocked, echo.Map{"error": "Pending"})
	case errors.Is(err, common.ErrUploadFailed):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "UploadFailed"})
	case errors.Is(err, common.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"code": "FileTooLarge"})
	case errors.Is(err, common.ErrTierNotEligible):
		return c.JSON(http.StatusForbidden, echo.Map{"code": "TierNotEligible"})
	case errors.Is(err, common.ErrMonthlyLimitReached):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"code": "MonthlyLimitReached"})
	case errors.Is(err, common.ErrIncompleteParts):
		return c.JSON(http.StatusBadRequest, echo.Map{"code": "IncompleteParts", "error": err.Error()})
	case errors.Is(err, common.ErrNotMultipart), errors.Is(err, common.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, common.ErrStorageUnavailable):
		s.logger.Error(c.Request().Context(), "storage unavailable", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "StorageUnavailable"})
	default:
		s.logger.Error(c.Request().Context(), "request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
