package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/internal/service"
)

// SnapshotParams is the input of every single-evaluator tool.
type SnapshotParams struct {
	Snapshot domain.MeasurementSnapshot `json:"snapshot"`
}

// InterpretLabParams defines parameters for the interpret_lab tool
type InterpretLabParams struct {
	Labs []domain.LabResult `json:"labs"`
}

// AssessVisitParams defines parameters for the assess_visit tool
type AssessVisitParams struct {
	VisitID       string                     `json:"visit_id"`
	ParticipantID string                     `json:"participant_id"`
	AssessedAt    string                     `json:"assessed_at,omitempty"`
	Snapshot      domain.MeasurementSnapshot `json:"snapshot"`
}

// GetAssessmentParams defines parameters for the get_assessment tool
type GetAssessmentParams struct {
	ID string `json:"id"`
}

// ListAssessmentsParams defines parameters for the list_assessments tool.
// Without a participant ID only referred visits are listed.
type ListAssessmentsParams struct {
	ParticipantID string `json:"participant_id,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Offset        int    `json:"offset,omitempty"`
}

// ListAssessmentsResult defines the result of list_assessments
type ListAssessmentsResult struct {
	Assessments []*domain.VisitAssessment `json:"assessments"`
	Count       int                       `json:"count"`
	Limit       int                       `json:"limit"`
	Offset      int                       `json:"offset"`
}

// CheckStockParams defines parameters for the check_stock tool
type CheckStockParams struct {
	ItemName   string `json:"item_name"`
	ExpiryDate string `json:"expiry_date"`
	AsOf       string `json:"as_of,omitempty"`
}

// UseStockParams defines parameters for the use_stock tool
type UseStockParams struct {
	ItemName  string `json:"item_name"`
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
}

// ExportAssessmentsParams is empty; the export always covers every assessment.
type ExportAssessmentsParams struct{}

// ExportAssessmentsResult defines the result of export_assessments
type ExportAssessmentsResult struct {
	FilePath string `json:"file_path"`
	Count    int    `json:"count"`
	Message  string `json:"message"`
}

// ImportAssessmentsParams defines parameters for the import_assessments tool
type ImportAssessmentsParams struct {
	FilePath string `json:"file_path"`
}

// ImportAssessmentsResult defines the result of import_assessments
type ImportAssessmentsResult struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

func addTool[In any](s *LiteServer, tool *mcp.Tool, handler mcp.ToolHandlerFor[In, any]) {
	mcp.AddTool(s.mcpServer, tool, handler)
	s.toolNames = append(s.toolNames, tool.Name)
	s.logger.WithField("tool_name", tool.Name).Debug("Registered MCP tool")
}

func (s *LiteServer) registerTools() {
	snapshotInput := func() *jsonschema.Schema {
		return objectSchema("", []string{"snapshot"}, map[string]*jsonschema.Schema{
			"snapshot": snapshotSchema(),
		})
	}

	addTool(s, &mcp.Tool{
		Name:        "categorize_bmi",
		Description: "Classify BMI (from height and weight, or a given BMI) and waist circumference.",
		InputSchema: snapshotInput(),
	}, s.handleCategorizeBMI)
	addTool(s, &mcp.Tool{
		Name:        "categorize_blood_pressure",
		Description: "Average one or two blood pressure readings and classify them, together with SpO2.",
		InputSchema: snapshotInput(),
	}, s.handleCategorizeBloodPressure)
	addTool(s, &mcp.Tool{
		Name:        "interpret_lab",
		Description: "Normalise lab values to mg/dL and classify each one.",
		InputSchema: objectSchema("", []string{"labs"}, map[string]*jsonschema.Schema{
			"labs": {Type: "array", Items: labSchema()},
		}),
	}, s.handleInterpretLab)
	addTool(s, &mcp.Tool{
		Name:        "score_screening",
		Description: "Score the PTM lifestyle screening answers into a risk factor total and category.",
		InputSchema: snapshotInput(),
	}, s.handleScoreScreening)
	addTool(s, &mcp.Tool{
		Name:        "compute_cvd_risk",
		Description: "Compute the composite cardiovascular risk score, referral decision and recommendations.",
		InputSchema: snapshotInput(),
	}, s.handleComputeCVDRisk)
	addTool(s, &mcp.Tool{
		Name:        "nutrition_status",
		Description: "Classify the nutrition status of a child under five from weight and age in months.",
		InputSchema: snapshotInput(),
	}, s.handleNutritionStatus)
	addTool(s, &mcp.Tool{
		Name:        "check_maternal_risk",
		Description: "Detect antenatal high-risk conditions from the pregnancy examination.",
		InputSchema: snapshotInput(),
	}, s.handleCheckMaternalRisk)
	addTool(s, &mcp.Tool{
		Name:        "check_stock",
		Description: "Classify a consumable by days remaining until its expiry date.",
		InputSchema: objectSchema("", []string{"item_name", "expiry_date"}, map[string]*jsonschema.Schema{
			"item_name":   stringProp("Consumable name"),
			"expiry_date": stringProp("Expiry date, YYYY-MM-DD"),
			"as_of":       stringProp("Reference date, YYYY-MM-DD; defaults to today"),
		}),
	}, s.handleCheckStock)
	addTool(s, &mcp.Tool{
		Name:        "use_stock",
		Description: "Take used units of a consumable from its remaining count; fails when too few remain.",
		InputSchema: objectSchema("", []string{"item_name", "remaining", "used"}, map[string]*jsonschema.Schema{
			"item_name": stringProp("Consumable name"),
			"remaining": integerProp("Units on hand"),
			"used":      integerProp("Units used at this session"),
		}),
	}, s.handleUseStock)
	addTool(s, &mcp.Tool{
		Name:        "assess_visit",
		Description: "Run every applicable evaluator for one visit, decide referral and store the assessment.",
		InputSchema: objectSchema("", []string{"visit_id", "participant_id", "snapshot"}, map[string]*jsonschema.Schema{
			"visit_id":       stringProp("Visit identifier; re-assessing a visit replaces its stored result"),
			"participant_id": stringProp("Participant identifier"),
			"assessed_at":    stringProp("As-of time, RFC 3339 or YYYY-MM-DD; defaults to now"),
			"snapshot":       snapshotSchema(),
		}),
	}, s.handleAssessVisit)
	addTool(s, &mcp.Tool{
		Name:        "get_assessment",
		Description: "Fetch a stored visit assessment by ID.",
		InputSchema: objectSchema("", []string{"id"}, map[string]*jsonschema.Schema{
			"id": stringProp("Assessment ID"),
		}),
	}, s.handleGetAssessment)
	addTool(s, &mcp.Tool{
		Name:        "list_assessments",
		Description: "List a participant's assessments, newest first, or every referred visit when no participant is given.",
		InputSchema: objectSchema("", nil, map[string]*jsonschema.Schema{
			"participant_id": stringProp("Participant identifier"),
			"limit":          integerProp("Page size, default 20, max 100"),
			"offset":         integerProp("Page offset"),
		}),
	}, s.handleListAssessments)
	addTool(s, &mcp.Tool{
		Name:        "export_assessments",
		Description: "Export all stored assessments to a JSON file in the data directory.",
		InputSchema: objectSchema("", nil, map[string]*jsonschema.Schema{}),
	}, s.handleExportAssessments)
	addTool(s, &mcp.Tool{
		Name:        "import_assessments",
		Description: "Import assessments from a JSON export. Visits already stored are skipped.",
		InputSchema: objectSchema("", []string{"file_path"}, map[string]*jsonschema.Schema{
			"file_path": stringProp("Path to the JSON export"),
		}),
	}, s.handleImportAssessments)
}

func (s *LiteServer) handleCategorizeBMI(ctx context.Context, req *mcp.CallToolRequest, params SnapshotParams) (*mcp.CallToolResult, any, error) {
	result, err := s.service.ClassifyBMI(ctx, params.Snapshot)
	if err != nil {
		return s.createErrorResult("BMI classification failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleCategorizeBloodPressure(ctx context.Context, req *mcp.CallToolRequest, params SnapshotParams) (*mcp.CallToolResult, any, error) {
	result, err := s.service.ClassifyBloodPressure(ctx, params.Snapshot)
	if err != nil {
		return s.createErrorResult("Blood pressure classification failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleInterpretLab(ctx context.Context, req *mcp.CallToolRequest, params InterpretLabParams) (*mcp.CallToolResult, any, error) {
	result, err := s.service.InterpretLabs(ctx, params.Labs)
	if err != nil {
		return s.createErrorResult("Lab interpretation failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleScoreScreening(ctx context.Context, req *mcp.CallToolRequest, params SnapshotParams) (*mcp.CallToolResult, any, error) {
	result, err := s.service.ScoreScreening(ctx, params.Snapshot)
	if err != nil {
		return s.createErrorResult("Screening score failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleComputeCVDRisk(ctx context.Context, req *mcp.CallToolRequest, params SnapshotParams) (*mcp.CallToolResult, any, error) {
	result, err := s.service.ComputeCVDRisk(ctx, params.Snapshot)
	if err != nil {
		return s.createErrorResult("CVD risk computation failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleNutritionStatus(ctx context.Context, req *mcp.CallToolRequest, params SnapshotParams) (*mcp.CallToolResult, any, error) {
	result, err := s.service.NutritionStatus(ctx, params.Snapshot)
	if err != nil {
		return s.createErrorResult("Nutrition status failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleCheckMaternalRisk(ctx context.Context, req *mcp.CallToolRequest, params SnapshotParams) (*mcp.CallToolResult, any, error) {
	result, err := s.service.CheckMaternalRisk(ctx, params.Snapshot)
	if err != nil {
		return s.createErrorResult("Maternal risk check failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleCheckStock(ctx context.Context, req *mcp.CallToolRequest, params CheckStockParams) (*mcp.CallToolResult, any, error) {
	expiry, err := parseTime("expiry_date", params.ExpiryDate)
	if err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}
	var asOf time.Time
	if params.AsOf != "" {
		if asOf, err = parseTime("as_of", params.AsOf); err != nil {
			return s.createErrorResult("Invalid parameters", err), nil, nil
		}
	}

	result, err := s.service.StockStatus(ctx, params.ItemName, expiry, asOf)
	if err != nil {
		return s.createErrorResult("Stock check failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleUseStock(ctx context.Context, req *mcp.CallToolRequest, params UseStockParams) (*mcp.CallToolResult, any, error) {
	result, err := s.service.UseStock(ctx, strings.TrimSpace(params.ItemName), params.Remaining, params.Used)
	if err != nil {
		return s.createErrorResult("Stock use failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleAssessVisit(ctx context.Context, req *mcp.CallToolRequest, params AssessVisitParams) (*mcp.CallToolResult, any, error) {
	visit := service.VisitRequest{
		VisitID:       strings.TrimSpace(params.VisitID),
		ParticipantID: strings.TrimSpace(params.ParticipantID),
		Snapshot:      params.Snapshot,
	}
	if params.AssessedAt != "" {
		at, err := parseTime("assessed_at", params.AssessedAt)
		if err != nil {
			return s.createErrorResult("Invalid parameters", err), nil, nil
		}
		visit.AssessedAt = at
	}

	result, err := s.service.AssessVisit(ctx, visit)
	if err != nil {
		return s.createErrorResult("Visit assessment failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleGetAssessment(ctx context.Context, req *mcp.CallToolRequest, params GetAssessmentParams) (*mcp.CallToolResult, any, error) {
	if params.ID == "" {
		return s.createErrorResult("Missing required parameter", domain.Missing("id")), nil, nil
	}
	result, err := s.service.GetAssessment(ctx, params.ID)
	if err != nil {
		return s.createErrorResult("Assessment lookup failed", err), nil, nil
	}
	return s.createResult(result)
}

func (s *LiteServer) handleListAssessments(ctx context.Context, req *mcp.CallToolRequest, params ListAssessmentsParams) (*mcp.CallToolResult, any, error) {
	var (
		list []*domain.VisitAssessment
		err  error
	)
	if params.ParticipantID != "" {
		list, err = s.service.ListByParticipant(ctx, params.ParticipantID, params.Limit, params.Offset)
	} else {
		list, err = s.service.ListReferrals(ctx, params.Limit, params.Offset)
	}
	if err != nil {
		return s.createErrorResult("Listing assessments failed", err), nil, nil
	}
	return s.createResult(ListAssessmentsResult{
		Assessments: list,
		Count:       len(list),
		Limit:       params.Limit,
		Offset:      params.Offset,
	})
}

func (s *LiteServer) handleExportAssessments(ctx context.Context, req *mcp.CallToolRequest, params ExportAssessmentsParams) (*mcp.CallToolResult, any, error) {
	exportDir := s.config.ExportDir()
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return s.createErrorResult("Failed to create export directory", err), nil, nil
	}

	filename := fmt.Sprintf("assessments_export_%s.json", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(exportDir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return s.createErrorResult("Failed to create export file", err), nil, nil
	}

	// A failed export leaves no partial file behind.
	fail := func(message string, err error) (*mcp.CallToolResult, any, error) {
		file.Close()
		os.Remove(filePath)
		s.logger.WithError(err).WithField("file_path", filePath).Error(message)
		return s.createErrorResult(message, err), nil, nil
	}

	if err := s.store.ExportJSON(ctx, file); err != nil {
		return fail("Failed to export assessments", err)
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return fail("Failed to count exported assessments", err)
	}
	if err := file.Close(); err != nil {
		return fail("Failed to write export file", err)
	}

	s.logger.WithFields(logrus.Fields{"file_path": filePath, "count": count}).Info("Exported assessments")
	return s.createResult(ExportAssessmentsResult{
		FilePath: filePath,
		Count:    count,
		Message:  fmt.Sprintf("Exported %d assessments to %s", count, filePath),
	})
}

func (s *LiteServer) handleImportAssessments(ctx context.Context, req *mcp.CallToolRequest, params ImportAssessmentsParams) (*mcp.CallToolResult, any, error) {
	if params.FilePath == "" {
		return s.createErrorResult("Missing required parameter", domain.Missing("file_path")), nil, nil
	}

	file, err := os.Open(params.FilePath)
	if err != nil {
		return s.createErrorResult("Failed to open file", err), nil, nil
	}
	defer file.Close()

	imported, skipped, err := s.store.ImportJSON(ctx, file)
	if err != nil {
		s.logger.WithError(err).Error("Failed to import assessments")
		return s.createErrorResult("Failed to import assessments", err), nil, nil
	}

	return s.createResult(ImportAssessmentsResult{
		Imported: imported,
		Skipped:  skipped,
		Message:  fmt.Sprintf("Imported %d assessments, skipped %d duplicates", imported, skipped),
	})
}

// parseTime accepts a calendar date or an RFC 3339 timestamp.
func parseTime(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "expected YYYY-MM-DD or RFC 3339", raw, domain.ErrInvalidMeasurement)
	}
	return t, nil
}

// createResult renders v as indented JSON text content.
func (s *LiteServer) createResult(v interface{}) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// createErrorResult creates a standardized error result for tool calls
func (s *LiteServer) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText = fmt.Sprintf("Error [%s]: %s - %v", domain.ErrorCode(err), message, err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
