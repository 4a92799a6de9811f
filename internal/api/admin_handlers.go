package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagreturn/tagreturn-server/internal/service"
	"github.com/tagreturn/tagreturn-server/internal/tagimport"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "runSweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/sweep",
		Summary:     "Run expiry sweep",
		Description: "Demotes every subscription whose end date has passed to inactive. Runs are serialized with the scheduled sweep.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRunSweep)

	huma.Register(s.api, huma.Operation{
		OperationID:  "importTags",
		Method:       http.MethodPost,
		Path:         "/api/v1/admin/tags/import",
		Summary:      "Import tags",
		Description:  "Provisions tags from a CSV, JSON or YAML manifest sent as the raw body. Existing tags are skipped.",
		Tags:         []string{"Admin"},
		Security:     []map[string][]string{{"bearer": {}}},
		MaxBodyBytes: MaxManifestSize,
	}, s.handleImportTags)
}

// SweepOutput wraps a sweep result for Huma.
type SweepOutput struct {
	Body service.SweepResult
}

// ImportTagsInput carries a manifest upload.
type ImportTagsInput struct {
	Format  string `query:"format" enum:"csv,json,yaml" default:"csv" doc:"Manifest encoding"`
	Name    string `query:"name" doc:"Manifest name shown in logs and events"`
	RawBody []byte
}

// ImportTagsOutput wraps an import result for Huma.
type ImportTagsOutput struct {
	Body tagimport.Result
}

func (s *Server) handleRunSweep(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
	userID, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expiry sweep requested", "user_id", userID)
	res, err := s.services.Sweep.Run(ctx)
	if err != nil {
		return nil, handleError(err)
	}
	return &SweepOutput{Body: res}, nil
}

func (s *Server) handleImportTags(ctx context.Context, input *ImportTagsInput) (*ImportTagsOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("Manifest body is required")
	}

	source := input.Name
	if source == "" {
		source = "upload." + input.Format
	}

	res, err := s.services.Tags.Import(ctx, bytes.NewReader(input.RawBody), tagimport.Format(input.Format), source)
	if err != nil {
		return nil, handleError(err)
	}
	return &ImportTagsOutput{Body: res}, nil
}
