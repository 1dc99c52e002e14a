package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationStatus статус одного запроса генерации.
type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "pending"
	GenerationStatusSucceeded GenerationStatus = "succeeded"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// TokenUsage is what the text provider reported (or what we estimated).
type TokenUsage struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalTokens      int     `json:"totalTokens"`
	EstimatedCostUSD float64 `json:"estimatedCostUsd,omitempty"`
}

// Generation is the context of a single generation request. The caller
// creates it, passes it to the generator and gets it back filled in.
type Generation struct {
	ID          uuid.UUID        `json:"id"`
	UserID      string           `json:"userId,omitempty"`
	Params      StoryParams      `json:"params"`
	Status      GenerationStatus `json:"status"`
	Story       *StoryRecord     `json:"story,omitempty"`
	Err         error            `json:"-"`
	RawResponse string           `json:"-"`
	Usage       TokenUsage       `json:"usage"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt time.Time        `json:"completedAt,omitempty"`
}

// NewGeneration creates a pending generation for the given params.
func NewGeneration(userID string, params StoryParams) *Generation {
	return &Generation{
		ID:     uuid.New(),
		UserID: userID,
		Params: params,
		Status: GenerationStatusPending,
	}
}

// Loading reports whether the generation has not finished yet.
func (g *Generation) Loading() bool {
	return g.Status == GenerationStatusPending
}

// Succeed marks the generation as done with the given record.
func (g *Generation) Succeed(record *StoryRecord, at time.Time) {
	g.Status = GenerationStatusSucceeded
	g.Story = record
	g.Err = nil
	g.CompletedAt = at
}

// Fail marks the generation as failed.
func (g *Generation) Fail(err error, at time.Time) {
	g.Status = GenerationStatusFailed
	g.Story = nil
	g.Err = err
	g.CompletedAt = at
}
