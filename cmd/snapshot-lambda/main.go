// Package main implements the Lambda handler for on-demand snapshot capture.
// Upstream pipelines invoke it when an entity's business outcomes are
// measured, pairing the fingerprint with fresh risk and value scores.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"dnacore/application/commands"
	commandbus "dnacore/application/commands/bus"
	"dnacore/application/queries"
	querybus "dnacore/application/queries/bus"
	"dnacore/domain/core/aggregates"
	"dnacore/infrastructure/config"
	"dnacore/infrastructure/di"
)

// Global dependencies for Lambda performance optimization
var (
	commandBus *commandbus.CommandBus
	queryBus   *querybus.QueryBus
)

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	commandBus = container.CommandBus
	queryBus = container.QueryBus

	log.Println("Snapshot handler initialized successfully")
}

// SnapshotRequest represents the input for a snapshot capture
type SnapshotRequest struct {
	EntityID  string `json:"entity_id"`
	Retention string `json:"retention,omitempty"` // defaults to daily
	// RiskScore and ValueScore are optional; a request without outcomes
	// stores a score-less capture rather than zero scores.
	RiskScore  *float64 `json:"risk_score,omitempty"`
	ValueScore *float64 `json:"value_score,omitempty"`
	// IncludeMemberships returns the captured fingerprint in the response
	IncludeMemberships bool `json:"include_memberships,omitempty"`
}

// SnapshotResponse reports the capture outcome
type SnapshotResponse struct {
	EntityID    string                                     `json:"entity_id"`
	Captured    bool                                       `json:"captured"`
	Confidence  float64                                    `json:"confidence,omitempty"`
	ColdStart   bool                                       `json:"cold_start,omitempty"`
	Memberships map[string]queries.DimensionMembershipView `json:"memberships,omitempty"`
}

// HandleSnapshot captures one entity's snapshot and optionally echoes its
// current categorization
func HandleSnapshot(ctx context.Context, request SnapshotRequest) (*SnapshotResponse, error) {
	log.Printf("Capturing snapshot for entity %s", request.EntityID)

	retention := request.Retention
	if retention == "" {
		retention = string(aggregates.RetentionDaily)
	}

	cmd := commands.CaptureSnapshotCommand{
		EntityID:   request.EntityID,
		Retention:  retention,
		RiskScore:  request.RiskScore,
		ValueScore: request.ValueScore,
	}
	if err := commandBus.Send(ctx, cmd); err != nil {
		return nil, err
	}

	response := &SnapshotResponse{
		EntityID: request.EntityID,
		Captured: true,
	}

	if request.IncludeMemberships {
		result, err := queryBus.Ask(ctx, queries.CategorizeEntityQuery{EntityID: request.EntityID})
		if err != nil {
			// The snapshot landed; a failed echo should not fail the invoke
			log.Printf("Categorization echo failed for entity %s: %v", request.EntityID, err)
			return response, nil
		}

		if categorization, ok := result.(*queries.CategorizationResult); ok {
			response.Confidence = categorization.Confidence
			response.ColdStart = categorization.ColdStart
			response.Memberships = categorization.Memberships
		}
	}

	return response, nil
}

func main() {
	lambda.Start(HandleSnapshot)
}
