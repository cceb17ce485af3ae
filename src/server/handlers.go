package server

import (
	"net/http"

	"dex-datafeed/src/datafeed"
	"dex-datafeed/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	cfg, err := s.feed.OnReady(c.Request.Context())
	if err != nil {
		// configuration is still usable, history returns no_data until the rate is known
		s.Logger.Warning("onReady: %v", err)
	}
	c.JSON(http.StatusOK, cfg)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSymbol(c *gin.Context) {
	desc, err := s.feed.ResolveSymbol(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"s": "error", "errmsg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, desc)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSearch(c *gin.Context) {
	c.JSON(http.StatusOK, s.feed.SearchSymbols(c.Query("query"), c.Query("exchange"), c.Query("type")))
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHistory(c *gin.Context) {
	symbol, err := datafeed.SymbolRef(c.Query("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, udfHistory{S: "error", ErrMsg: err.Error()})
		return
	}

	resolution := c.Query("resolution")
	if _, err := datafeed.ResolutionMinutes(resolution); err != nil {
		c.JSON(http.StatusBadRequest, udfHistory{S: "error", ErrMsg: err.Error()})
		return
	}

	from, errFrom := parseInt64(c.Query("from"))
	to, errTo := parseInt64(c.Query("to"))
	if errFrom != nil || errTo != nil || from > to {
		c.JSON(http.StatusBadRequest, udfHistory{S: "error", ErrMsg: "from and to must be unix seconds with from <= to"})
		return
	}

	period := models.MPeriodParams{
		From:             from,
		To:               to,
		FirstDataRequest: parseBool(c.Query("firstDataRequest")),
	}
	if cb, err := parseInt64(c.Query("countback")); err == nil {
		period.CountBack = int(cb)
	}

	res, err := s.feed.GetBars(c.Request.Context(), symbol, resolution, period)
	if err != nil {
		s.Logger.Warning("getBars %s %s: %v", symbol.FullName(), resolution, err)
		c.JSON(statusFor(err), udfHistory{S: "error", ErrMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, toUDF(res))
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := s.connections
	lastUpdate := s.lastUpdate
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"subscriptions": len(s.feed.Subscriptions()),
		"latest_update": lastUpdate,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.feed.Status())
}

// -----------------------------------------------------------------------------

// getArchive serves bars previously written to the archive sink.
func (s *FastAPIServer) getArchive(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, udfHistory{S: "error", ErrMsg: "archive disabled"})
		return
	}

	symbol, err := datafeed.SymbolRef(c.Query("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, udfHistory{S: "error", ErrMsg: err.Error()})
		return
	}
	from, errFrom := parseInt64(c.Query("from"))
	to, errTo := parseInt64(c.Query("to"))
	if errFrom != nil || errTo != nil || from > to {
		c.JSON(http.StatusBadRequest, udfHistory{S: "error", ErrMsg: "from and to must be unix seconds with from <= to"})
		return
	}

	bars, err := s.archive.GetBars(c.Request.Context(), symbol.Ticker, c.Query("resolution"), from*1000, to*1000)
	if err != nil {
		s.Logger.Error("archive read %s: %v", symbol.Ticker, err)
		c.JSON(http.StatusInternalServerError, udfHistory{S: "error", ErrMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, toUDF(models.MHistoryResult{Bars: bars}))
}
