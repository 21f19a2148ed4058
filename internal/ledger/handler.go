package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"trainerbook/internal/api"
	"trainerbook/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// @Summary      List my packages
// @Tags         packages
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} ledger.Package
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /packages [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	packages, err := h.repo.ListPackagesForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch packages"})
		return
	}

	c.JSON(http.StatusOK, packages)
}

// @Summary      Package balance
// @Description  Sessions used and remaining per participant. Participants and admins only.
// @Tags         packages
// @Security     BearerAuth
// @Produce      json
// @Param        packageID path int true "Package ID"
// @Success      200 {object} ledger.AccountSummary
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /packages/{packageID} [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	role, okRole := auth.GetRole(c)
	if !ok || !okRole {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	packageID, err := strconv.Atoi(c.Param("packageID"))
	if err != nil || packageID <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid package ID"})
		return
	}

	acct, err := New(h.repo).Load(c.Request.Context(), packageID, false)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) || errors.Is(err, ErrNoParticipants) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Package not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load package"})
		return
	}

	if !role.IsAdmin() && !acct.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "You are not a participant of this package"})
		return
	}

	c.JSON(http.StatusOK, acct.Summary())
}
