package events

import (
	"time"
)

// SourceCore identifies this service as the event source on the bus
const SourceCore = "dnacore"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Calibration events

// DimensionCalibrated is raised when a new dimension version is published
type DimensionCalibrated struct {
	BaseEvent
	DimensionName    string   `json:"dimension_name"`
	DimensionVersion string   `json:"dimension_version"`
	SegmentCount     int      `json:"segment_count"`
	Cohesion         float64  `json:"cohesion"`
	Balance          float64  `json:"balance"`
	Population       int      `json:"population"`
	Warnings         []string `json:"warnings,omitempty"`
}

// NewDimensionCalibrated creates a DimensionCalibrated event
func NewDimensionCalibrated(
	dimensionName, dimensionVersion string,
	segmentCount int,
	cohesion, balance float64,
	population int,
	warnings []string,
	timestamp time.Time,
) DimensionCalibrated {
	return DimensionCalibrated{
		BaseEvent: BaseEvent{
			AggregateID: dimensionName,
			EventType:   "dimension.calibrated",
			Timestamp:   timestamp,
			Version:     1,
		},
		DimensionName:    dimensionName,
		DimensionVersion: dimensionVersion,
		SegmentCount:     segmentCount,
		Cohesion:         cohesion,
		Balance:          balance,
		Population:       population,
		Warnings:         warnings,
	}
}

// Snapshot events

// SnapshotCaptured is raised when an entity's behavioral DNA is snapshotted
type SnapshotCaptured struct {
	BaseEvent
	SnapshotID string  `json:"snapshot_id"`
	EntityID   string  `json:"entity_id"`
	Retention  string  `json:"retention"`
	Confidence float64 `json:"confidence"`
}

// NewSnapshotCaptured creates a SnapshotCaptured event
func NewSnapshotCaptured(snapshotID, entityID, retention string, confidence float64, timestamp time.Time) SnapshotCaptured {
	return SnapshotCaptured{
		BaseEvent: BaseEvent{
			AggregateID: entityID,
			EventType:   "snapshot.captured",
			Timestamp:   timestamp,
			Version:     1,
		},
		SnapshotID: snapshotID,
		EntityID:   entityID,
		Retention:  retention,
		Confidence: confidence,
	}
}

// DriftDetected is raised when a journey query observes drift above the
// stable tier on any dimension, so alerting collaborators can react
type DriftDetected struct {
	BaseEvent
	EntityID      string  `json:"entity_id"`
	DimensionName string  `json:"dimension_name"`
	Drift         float64 `json:"drift"`
	Severity      string  `json:"severity"`
	Urgency       string  `json:"urgency"`
}

// NewDriftDetected creates a DriftDetected event
func NewDriftDetected(entityID, dimensionName string, drift float64, severity, urgency string, timestamp time.Time) DriftDetected {
	return DriftDetected{
		BaseEvent: BaseEvent{
			AggregateID: entityID,
			EventType:   "drift.detected",
			Timestamp:   timestamp,
			Version:     1,
		},
		EntityID:      entityID,
		DimensionName: dimensionName,
		Drift:         drift,
		Severity:      severity,
		Urgency:       urgency,
	}
}
