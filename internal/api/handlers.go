package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/internal/service"
)

const dateLayout = "2006-01-02"

// LabRequest is the body of POST /evaluate/lab.
type LabRequest struct {
	Labs []domain.LabResult `json:"labs" binding:"required,min=1"`
}

// StockRequest is the body of POST /evaluate/stock. Dates are YYYY-MM-DD.
type StockRequest struct {
	ItemName   string `json:"item_name" binding:"required,notblank"`
	ExpiryDate string `json:"expiry_date" binding:"required,datetime=2006-01-02"`
	AsOf       string `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// UseStockRequest is the body of POST /stock/use.
type UseStockRequest struct {
	ItemName  string `json:"item_name" binding:"required,notblank"`
	Remaining int    `json:"remaining" binding:"min=0"`
	Used      int    `json:"used" binding:"min=0"`
}

// AssessVisitRequest is the body of POST /visits/assess.
type AssessVisitRequest struct {
	VisitID       string                     `json:"visit_id" binding:"required,notblank"`
	ParticipantID string                     `json:"participant_id" binding:"required,notblank"`
	AssessedAt    *time.Time                 `json:"assessed_at"`
	Snapshot      domain.MeasurementSnapshot `json:"snapshot"`
}

// PageQuery holds the pagination query parameters.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=0,max=1000"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// ListResponse wraps a page of assessments.
type ListResponse struct {
	Assessments []*domain.VisitAssessment `json:"assessments"`
	Count       int                       `json:"count"`
	Limit       int                       `json:"limit"`
	Offset      int                       `json:"offset"`
}

// bindSnapshot decodes the request body as a measurement snapshot.
func (s *Server) bindSnapshot(c *gin.Context) (domain.MeasurementSnapshot, bool) {
	var snapshot domain.MeasurementSnapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		s.respondBindError(c, err)
		return snapshot, false
	}
	return snapshot, true
}

// evaluate binds a snapshot, runs fn and writes its result.
func evaluate[T any](s *Server, c *gin.Context, fn func(*gin.Context, domain.MeasurementSnapshot) (T, error)) {
	snapshot, ok := s.bindSnapshot(c)
	if !ok {
		return
	}
	result, err := fn(c, snapshot)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBMI(c *gin.Context) {
	evaluate(s, c, func(c *gin.Context, snap domain.MeasurementSnapshot) (domain.AnthropometryResult, error) {
		return s.service.ClassifyBMI(c.Request.Context(), snap)
	})
}

func (s *Server) handleWaist(c *gin.Context) {
	evaluate(s, c, func(c *gin.Context, snap domain.MeasurementSnapshot) (domain.ClassificationResult, error) {
		return s.service.ClassifyWaist(c.Request.Context(), snap)
	})
}

func (s *Server) handleBloodPressure(c *gin.Context) {
	evaluate(s, c, func(c *gin.Context, snap domain.MeasurementSnapshot) (domain.VitalsResult, error) {
		return s.service.ClassifyBloodPressure(c.Request.Context(), snap)
	})
}

func (s *Server) handleSpO2(c *gin.Context) {
	evaluate(s, c, func(c *gin.Context, snap domain.MeasurementSnapshot) (domain.ClassificationResult, error) {
		return s.service.ClassifySpO2(c.Request.Context(), snap)
	})
}

func (s *Server) handleNutrition(c *gin.Context) {
	evaluate(s, c, func(c *gin.Context, snap domain.MeasurementSnapshot) (domain.ClassificationResult, error) {
		return s.service.NutritionStatus(c.Request.Context(), snap)
	})
}

func (s *Server) handleScreening(c *gin.Context) {
	evaluate(s, c, func(c *gin.Context, snap domain.MeasurementSnapshot) (domain.RiskFactorScore, error) {
		return s.service.ScoreScreening(c.Request.Context(), snap)
	})
}

func (s *Server) handleCVD(c *gin.Context) {
	evaluate(s, c, func(c *gin.Context, snap domain.MeasurementSnapshot) (service.CVDAssessment, error) {
		return s.service.ComputeCVDRisk(c.Request.Context(), snap)
	})
}

func (s *Server) handleMaternal(c *gin.Context) {
	evaluate(s, c, func(c *gin.Context, snap domain.MeasurementSnapshot) (domain.MaternalRiskResult, error) {
		return s.service.CheckMaternalRisk(c.Request.Context(), snap)
	})
}

func (s *Server) handleLab(c *gin.Context) {
	var req LabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	result, err := s.service.InterpretLabs(c.Request.Context(), req.Labs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStock(c *gin.Context) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	// Formats were checked by the datetime binding tag.
	expiry, _ := time.Parse(dateLayout, req.ExpiryDate)
	var asOf time.Time
	if req.AsOf != "" {
		asOf, _ = time.Parse(dateLayout, req.AsOf)
	}

	result, err := s.service.StockStatus(c.Request.Context(), req.ItemName, expiry, asOf)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleUseStock(c *gin.Context) {
	var req UseStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	result, err := s.service.UseStock(c.Request.Context(), req.ItemName, req.Remaining, req.Used)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAssessVisit(c *gin.Context) {
	var req AssessVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	visit := service.VisitRequest{
		VisitID:       req.VisitID,
		ParticipantID: req.ParticipantID,
		Snapshot:      req.Snapshot,
	}
	if req.AssessedAt != nil {
		visit.AssessedAt = *req.AssessedAt
	}

	result, err := s.service.AssessVisit(c.Request.Context(), visit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	result, err := s.service.GetAssessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListByParticipant(c *gin.Context) {
	var page PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		s.respondBindError(c, err)
		return
	}
	list, err := s.service.ListByParticipant(c.Request.Context(), c.Param("id"), page.Limit, page.Offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Assessments: list, Count: len(list), Limit: page.Limit, Offset: page.Offset})
}

func (s *Server) handleListReferrals(c *gin.Context) {
	var page PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		s.respondBindError(c, err)
		return
	}
	list, err := s.service.ListReferrals(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Assessments: list, Count: len(list), Limit: page.Limit, Offset: page.Offset})
}
