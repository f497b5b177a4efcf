package api

import (
	models "LGDPulse/internal/domain/models"
	domrepo "LGDPulse/internal/domain/repository"
	xhttp "LGDPulse/pkg/http"
	xlogger "LGDPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ResultsHandler exposes the read-only monitoring surface: latest validation
// results and the governance verdict history. Dashboard collaborators
// consume these; nothing here mutates run state.
type ResultsHandler struct {
	logger   *xlogger.Logger
	results  domrepo.ResultSink
	verdicts domrepo.VerdictLog
}

func NewResultsHandler(logger *xlogger.Logger, results domrepo.ResultSink, verdicts domrepo.VerdictLog) *ResultsHandler {
	return &ResultsHandler{logger: logger, results: results, verdicts: verdicts}
}

func (h *ResultsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/results", h.Results)
	g.GET("/verdicts", h.Verdicts)
}

func (h *ResultsHandler) Results(c echo.Context) error {
	req := &models.ResultsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.results == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("result store is not configured"))
	}

	rows, err := h.results.LatestResults(c.Request().Context(), req.ModelID, req.Limit)
	if err != nil {
		h.logger.Error("latest results query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ResultsHandler) Verdicts(c echo.Context) error {
	req := &models.VerdictsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.verdicts == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("verdict log is not configured"))
	}

	history, err := h.verdicts.History(c.Request().Context(), req.ModelID, req.Limit)
	if err != nil {
		h.logger.Error("verdict history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, history, int64(len(history)))
}
