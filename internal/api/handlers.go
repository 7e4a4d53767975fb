package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rewired-gh/gescout/internal/backtest"
	"github.com/rewired-gh/gescout/internal/models"
	"github.com/rewired-gh/gescout/internal/pipeline"
)

const defaultTimestep = "1h"

// getItems runs the pipeline with the request's mode and thresholds.
func (s *Server) getItems(c *gin.Context) {
	opts, err := s.optionsFromQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := s.svc.Scan(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   err.Error(),
			"records": []models.ItemRecord{},
		})
		return
	}

	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	records := result.Records
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	skipped := make(map[string]int, len(result.Skipped))
	for reason, n := range result.Skipped {
		skipped[string(reason)] = n
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":       opts.Mode,
		"show_all":   opts.ShowAll,
		"thresholds": opts.Thresholds,
		"candidates": result.Candidates,
		"built":      result.Built,
		"skipped":    skipped,
		"count":      len(records),
		"records":    records,
	})
}

func (s *Server) getTimeseries(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	step := c.DefaultQuery("timestep", defaultTimestep)
	if !models.IsValidTimestep(step) {
		respondError(c, http.StatusBadRequest, fmt.Errorf("timestep must be one of %v", models.ValidTimesteps))
		return
	}

	points, err := s.svc.Timeseries(c.Request.Context(), id, step)
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item_id": id, "timestep": step, "points": points})
}

func (s *Server) getBacktest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	step := c.DefaultQuery("timestep", defaultTimestep)
	if !models.IsValidTimestep(step) {
		respondError(c, http.StatusBadRequest, fmt.Errorf("timestep must be one of %v", models.ValidTimesteps))
		return
	}
	hold, ok := queryInt(c, "hold", backtest.DefaultHoldPeriods)
	if !ok {
		return
	}
	opts, err := s.optionsFromQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	points, err := s.svc.Timeseries(c.Request.Context(), id, step)
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}

	var buyLimit int64
	if names, err := s.svc.Names(c.Request.Context()); err == nil {
		if name, ok := names[id]; ok {
			buyLimit = s.limits.Lookup(name)
		}
	}

	result := backtest.Replay(points, backtest.ReplayOptions{
		Thresholds:  opts.Thresholds,
		HoldPeriods: hold,
		BuyLimit:    buyLimit,
	})
	c.JSON(http.StatusOK, gin.H{"item_id": id, "timestep": step, "result": result})
}

func (s *Server) getCorrelation(c *gin.Context) {
	raw := strings.Split(c.Query("ids"), ",")
	ids := make([]int64, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, fmt.Errorf("invalid item id %q", part))
			return
		}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		respondError(c, http.StatusBadRequest, fmt.Errorf("at least two item ids are required"))
		return
	}
	step := c.DefaultQuery("timestep", defaultTimestep)
	if !models.IsValidTimestep(step) {
		respondError(c, http.StatusBadRequest, fmt.Errorf("timestep must be one of %v", models.ValidTimesteps))
		return
	}

	series := make(map[int64][]models.TimeseriesPoint, len(ids))
	for _, id := range ids {
		points, err := s.svc.Timeseries(c.Request.Context(), id, step)
		if err != nil {
			respondError(c, http.StatusBadGateway, err)
			return
		}
		series[id] = points
	}
	c.JSON(http.StatusOK, backtest.CorrelationMatrix(series))
}

// optionsFromQuery starts from the server defaults. Threshold overrides
// only apply in Custom mode; presets are fixed.
func (s *Server) optionsFromQuery(c *gin.Context) (pipeline.Options, error) {
	opts := s.defaults

	if raw := c.Query("mode"); raw != "" {
		mode, err := pipeline.ParseMode(raw)
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
		opts.Thresholds = pipeline.ThresholdsFor(mode, s.custom)
	}
	if raw := c.Query("show_all"); raw != "" {
		showAll, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid show_all %q", raw)
		}
		opts.ShowAll = showAll
	}
	if opts.Mode != pipeline.ModeCustom {
		return opts, nil
	}

	t := &opts.Thresholds
	for key, target := range map[string]*int64{
		"min_margin": &t.MinMargin,
		"min_volume": &t.MinVolume,
	} {
		if raw := c.Query(key); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return opts, fmt.Errorf("invalid %s %q", key, raw)
			}
			*target = v
		}
	}
	for key, target := range map[string]*float64{
		"min_utility":      &t.MinUtility,
		"season_threshold": &t.SeasonThreshold,
	} {
		if raw := c.Query(key); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return opts, fmt.Errorf("invalid %s %q", key, raw)
			}
			*target = v
		}
	}
	for key, target := range map[string]*int{
		"manipulation_threshold": &t.ManipulationThreshold,
		"volatility_threshold":   &t.VolatilityThreshold,
	} {
		if raw := c.Query(key); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 || v > 10 {
				return opts, fmt.Errorf("%s must be an integer between 0 and 10", key)
			}
			*target = v
		}
	}
	return opts, nil
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, fmt.Errorf("invalid item id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		respondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s %q", key, raw))
		return 0, false
	}
	return v, true
}
