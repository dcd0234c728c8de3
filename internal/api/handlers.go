package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"

	"sigcalc/app"
	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal/errors"
	"sigcalc/internal/toys"

	"github.com/gin-gonic/gin"
)

// Defaults fill in request fields the client leaves out
type Defaults struct {
	MuTest    float64
	ToyMuMin  float64
	ToyMuMax  float64
	ToyPoints int
}

// maxToyPoints bounds the grid of a scan started over HTTP.
const maxToyPoints = 200

// CalculationHandler serves significance calculations and toy scans
type CalculationHandler struct {
	significance *app.SignificanceService
	validation   *app.ValidationService
	hub          *ScanHub
	defaults     Defaults

	// scans run detached from the request that started them
	background context.Context
	scans      sync.WaitGroup
}

// NewCalculationHandler creates a new calculation handler. Scans started
// through it are cancelled when background is.
func NewCalculationHandler(
	background context.Context,
	significance *app.SignificanceService,
	validation *app.ValidationService,
	hub *ScanHub,
	defaults Defaults,
) *CalculationHandler {
	return &CalculationHandler{
		significance: significance,
		validation:   validation,
		hub:          hub,
		defaults:     defaults,
		background:   background,
	}
}

type experimentRequest struct {
	N        *float64             `json:"n" binding:"required"`
	S        *float64             `json:"s" binding:"required"`
	Channels []experiment.Channel `json:"channels"`
}

func (r experimentRequest) experiment() (experiment.Experiment, error) {
	exp, err := experiment.FromChannels(*r.N, *r.S, r.Channels)
	if err != nil {
		return experiment.Experiment{}, errors.Wrap(err, "invalid experiment")
	}
	return exp, nil
}

type significanceRequest struct {
	experimentRequest
	Mu *float64 `json:"mu"`
}

type qmuRequest struct {
	experimentRequest
	MuValues []float64 `json:"mu_values" binding:"required,min=1"`
}

type scanRequest struct {
	experimentRequest
	MuMin  *float64 `json:"mu_min"`
	MuMax  *float64 `json:"mu_max"`
	Points int      `json:"points"`
}

// Calculate runs discovery and exclusion tests for one experiment
func (h *CalculationHandler) Calculate(c *gin.Context) {
	var req significanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidInput(err))
		return
	}
	exp, err := req.experiment()
	if err != nil {
		abortWithError(c, err)
		return
	}
	mu := h.defaults.MuTest
	if req.Mu != nil {
		mu = *req.Mu
	}

	calc, err := h.significance.Calculate(c.Request.Context(), exp, mu)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, calc)
}

// QmuCurve evaluates q_mu over a list of hypotheses
func (h *CalculationHandler) QmuCurve(c *gin.Context) {
	var req qmuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidInput(err))
		return
	}
	exp, err := req.experiment()
	if err != nil {
		abortWithError(c, err)
		return
	}

	curve, err := h.significance.QmuCurve(c.Request.Context(), exp, req.MuValues)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fingerprint": exp.Fingerprint(),
		"points":      curve,
	})
}

// GetCalculation returns an archived calculation
func (h *CalculationHandler) GetCalculation(c *gin.Context) {
	id, err := core.ParseCalculationID(c.Param("id"))
	if err != nil {
		abortWithError(c, invalidInput(err))
		return
	}

	calc, err := h.significance.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, calc)
}

// ListCalculations returns archived calculations, newest first
func (h *CalculationHandler) ListCalculations(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			abortWithError(c, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = v
	}

	calcs, err := h.significance.History(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calculations": calcs})
}

// StartScan launches a toy scan in the background and returns its ID.
// Progress is published on the scan's event stream.
func (h *CalculationHandler) StartScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidInput(err))
		return
	}
	exp, err := req.experiment()
	if err != nil {
		abortWithError(c, err)
		return
	}

	muMin, muMax, points := h.defaults.ToyMuMin, h.defaults.ToyMuMax, h.defaults.ToyPoints
	if req.MuMin != nil {
		muMin = *req.MuMin
	}
	if req.MuMax != nil {
		muMax = *req.MuMax
	}
	if req.Points != 0 {
		points = req.Points
	}
	if muMin < 0 || muMin > muMax || points < 1 || points > maxToyPoints {
		abortWithError(c, errors.InvalidInput("scan grid must satisfy 0 <= mu_min <= mu_max and 1 <= points <= 200"))
		return
	}

	id := core.NewScanID()
	grid := toys.Grid(muMin, muMax, points)

	h.scans.Add(1)
	go h.runScan(id, exp, grid)

	c.JSON(http.StatusAccepted, gin.H{
		"scan_id": id,
		"points":  len(grid),
		"events":  "/api/v1/scans/" + id.String() + "/events",
	})
}

func (h *CalculationHandler) runScan(id core.ScanID, exp experiment.Experiment, grid []float64) {
	defer h.scans.Done()

	progress := func(i int, p stats.ScanPoint) {
		h.hub.Broadcast(ScanEvent{ScanID: id, EventType: EventPoint, Index: i, Point: &p})
	}
	if _, err := h.validation.ValidateWithProgress(h.background, id, exp, grid, progress); err != nil {
		log.Printf("[API] Scan %s failed: %v", id, err)
		h.hub.Broadcast(ScanEvent{ScanID: id, EventType: EventError, Error: err.Error()})
		return
	}
	h.hub.Broadcast(ScanEvent{ScanID: id, EventType: EventDone})
}

// WaitForScans blocks until every background scan has returned
func (h *CalculationHandler) WaitForScans() {
	h.scans.Wait()
}

// ScanPoints returns the archived points of a finished scan
func (h *CalculationHandler) ScanPoints(c *gin.Context) {
	id, err := core.ParseScanID(c.Param("id"))
	if err != nil {
		abortWithError(c, invalidInput(err))
		return
	}

	points, err := h.validation.Points(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan_id": id, "points": points})
}
