package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/services"
)

// LotManager is the lot administration surface used by AdminHandler
type LotManager interface {
	CreateLot(ctx context.Context, identity models.Identity, req models.CreateLotRequest) (*models.ParkingLot, error)
	DeleteLot(ctx context.Context, identity models.Identity, lotID int64) (*models.DeleteLotResult, error)
	ViewLot(ctx context.Context, identity models.Identity, lotID int64) (*models.LotDetail, error)
	AdminDashboard(ctx context.Context, identity models.Identity) (*models.AdminDashboard, error)
}

// LotSearcher runs admin searches
type LotSearcher interface {
	AdminSearch(ctx context.Context, identity models.Identity, searchType, query string) (*models.SearchResults, error)
}

// AdminHandler handles the administrator routes
type AdminHandler struct {
	lots   LotManager
	search LotSearcher
	audit  auditRecorder
	logger *logrus.Logger
}

// NewAdminHandler creates a new AdminHandler. auditService may be nil.
func NewAdminHandler(lots LotManager, search LotSearcher, auditService *services.AuditService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		lots:   lots,
		search: search,
		audit:  auditRecorder{service: auditService, logger: logger},
		logger: logger,
	}
}

// Dashboard handles GET /admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	dashboard, err := h.lots.AdminDashboard(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// CreateLot handles POST /admin/create_lot
func (h *AdminHandler) CreateLot(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	var req models.CreateLotRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	lot, err := h.lots.CreateLot(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.lotCreated(c.Request.Context(), identity, lot, requestMeta(c))

	c.JSON(http.StatusCreated, gin.H{
		"message": "Parking lot created successfully!",
		"lot":     lot,
	})
}

// ViewLot handles GET /admin/view_lot/:id
func (h *AdminHandler) ViewLot(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	lotID, err := parseIDParam(c, "id", "lot id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	detail, err := h.lots.ViewLot(c.Request.Context(), identity, lotID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// DeleteLot handles GET /admin/delete_lot/:id
func (h *AdminHandler) DeleteLot(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	lotID, err := parseIDParam(c, "id", "lot id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.lots.DeleteLot(c.Request.Context(), identity, lotID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.lotDeleted(c.Request.Context(), identity, result, requestMeta(c))

	c.JSON(http.StatusOK, gin.H{
		"message": "Parking lot deleted successfully!",
		"result":  result,
	})
}

// Search handles POST /admin/search
func (h *AdminHandler) Search(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	var req models.SearchRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	results, err := h.search.AdminSearch(c.Request.Context(), identity, req.SearchType, req.SearchQuery)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
