// Package assemble builds the structured response from the stage outputs.
package assemble

import (
	"time"

	"query-router/internal/models"
)

type Input struct {
	Query    models.Query
	Header   models.Header
	Filters  []models.Entity
	Decision models.RouteDecision
	Errors   []models.ValidationError
	Elapsed  time.Duration

	Corrections        []models.Correction
	SnapshotVersion    string
	RuleSet            string
	IncludeDiagnostics bool
}

func Assemble(in Input) *models.Response {
	entities := in.Header.Entities()
	entities = append(entities, in.Filters...)

	errs := in.Errors
	if errs == nil {
		errs = []models.ValidationError{}
	}

	resp := &models.Response{
		Header: in.Header,
		QueryMetadata: models.QueryMetadata{
			QueryType:        in.Decision.Module,
			ActionType:       in.Decision.ActionType,
			ProcessingTimeMs: in.Elapsed.Milliseconds(),
		},
		Entities:        entities,
		DisplayEntities: DisplayFields(in.Decision.Module, in.Filters, in.Query.Corrected),
		Errors:          errs,
	}

	if in.IncludeDiagnostics {
		corrections := in.Corrections
		if corrections == nil {
			corrections = []models.Correction{}
		}
		resp.Diagnostics = &models.Diagnostics{
			Query:           in.Query,
			Corrections:     corrections,
			Confidence:      in.Decision.Confidence,
			Reason:          in.Decision.Reason,
			SnapshotVersion: in.SnapshotVersion,
			RuleSet:         in.RuleSet,
		}
	}
	return resp
}
