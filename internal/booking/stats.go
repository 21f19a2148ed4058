package booking

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"trainerbook/internal/api"
	"trainerbook/internal/logger"
	"trainerbook/internal/schedule"
)

// maxStatsRange caps how many days one stats query may cover.
const maxStatsRange = 366

type StatsByDay struct {
	Date      string `db:"date" json:"date" example:"2026-03-02"`
	Confirmed int    `db:"confirmed" json:"confirmed"`
	Cancelled int    `db:"cancelled" json:"cancelled"`
	Minutes   int    `db:"minutes" json:"confirmed_minutes"`
}

type StatsByPackage struct {
	PackageID   int    `db:"package_id" json:"package_id"`
	PackageName string `db:"package_name" json:"package_name"`
	Confirmed   int    `db:"confirmed" json:"confirmed"`
	Cancelled   int    `db:"cancelled" json:"cancelled"`
}

// StatsRepository aggregates bookings by session date for the trainer's reports.
type StatsRepository struct {
	db sqlx.QueryerContext
}

func NewStatsRepository(db sqlx.QueryerContext) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) ByDay(ctx context.Context, from, to string) ([]StatsByDay, error) {
	query := `
		SELECT
		  to_char(date, 'YYYY-MM-DD') AS date,
		  COUNT(*) FILTER (WHERE status = 'CONFIRMED') AS confirmed,
		  COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled,
		  COALESCE(SUM(duration_minutes) FILTER (WHERE status = 'CONFIRMED'), 0) AS minutes
		FROM bookings
		WHERE date BETWEEN $1 AND $2
		GROUP BY date
		ORDER BY date
	`

	stats := []StatsByDay{}
	if err := sqlx.SelectContext(ctx, r.db, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *StatsRepository) ByPackage(ctx context.Context, from, to string) ([]StatsByPackage, error) {
	query := `
		SELECT
		  p.id   AS package_id,
		  p.name AS package_name,
		  COUNT(b.id) FILTER (WHERE b.status = 'CONFIRMED') AS confirmed,
		  COUNT(b.id) FILTER (WHERE b.status = 'CANCELLED') AS cancelled
		FROM packages p
		JOIN bookings b ON b.package_id = p.id
		WHERE b.date BETWEEN $1 AND $2
		GROUP BY p.id, p.name
		ORDER BY p.id
	`

	stats := []StatsByPackage{}
	if err := sqlx.SelectContext(ctx, r.db, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

type StatsHandler struct {
	repo *StatsRepository
}

func NewStatsHandler(repo *StatsRepository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

type StatsQuery struct {
	From string `form:"from" validate:"required,datetime=2006-01-02"`
	To   string `form:"to" validate:"required,datetime=2006-01-02"`
}

// statsRange binds and checks from/to. It writes the error response itself.
func statsRange(c *gin.Context) (StatsQuery, bool) {
	var q StatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Reason: "validation"})
		return q, false
	}
	if errs := api.ValidateStruct(q); errs != nil {
		api.RespondWithValidationErrors(c, errs)
		return q, false
	}

	from, _ := time.Parse(schedule.DateLayout, q.From)
	to, _ := time.Parse(schedule.DateLayout, q.To)
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "to must not be before from", Reason: "validation"})
		return q, false
	}
	if to.Sub(from) > maxStatsRange*24*time.Hour {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "range is limited to one year", Reason: "validation"})
		return q, false
	}
	return q, true
}

// Daily godoc
// @Summary      Bookings per day
// @Description  Confirmed and cancelled sessions per session date, inclusive range.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  true  "First day (YYYY-MM-DD)"
// @Param        to    query     string  true  "Last day (YYYY-MM-DD)"
// @Success      200   {array}   StatsByDay
// @Failure      400   {object}  api.ErrorResponse
// @Router       /admin/stats/daily [get]
func (h *StatsHandler) Daily(c *gin.Context) {
	q, ok := statsRange(c)
	if !ok {
		return
	}

	stats, err := h.repo.ByDay(c.Request.Context(), q.From, q.To)
	if err != nil {
		logger.Error("daily stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ByPackage godoc
// @Summary      Bookings per package
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  true  "First day (YYYY-MM-DD)"
// @Param        to    query     string  true  "Last day (YYYY-MM-DD)"
// @Success      200   {array}   StatsByPackage
// @Failure      400   {object}  api.ErrorResponse
// @Router       /admin/stats/packages [get]
func (h *StatsHandler) ByPackage(c *gin.Context) {
	q, ok := statsRange(c)
	if !ok {
		return
	}

	stats, err := h.repo.ByPackage(c.Request.Context(), q.From, q.To)
	if err != nil {
		logger.Error("package stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
