package api

import (
	"net/http"
	"time"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type JobResponse struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	VariantID   string          `json:"variant_id"`
	BatchID     *uuid.UUID      `json:"batch_id,omitempty"`
	WorkflowKey string          `json:"workflow_key"`
	Status      string          `json:"status"`
	FailedStage string          `json:"failed_stage,omitempty"`
	Error       string          `json:"error,omitempty"`
	Prompts     []string        `json:"prompts"`
	Events      []EventResponse `json:"events"`
	Images      []ImageResponse `json:"images"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type EventResponse struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type ImageResponse struct {
	Index    int    `json:"index"`
	Url      string `json:"url"`
	MimeType string `json:"mime_type"`
}

type BatchResponse struct {
	ID           string       `json:"id"`
	Status       string       `json:"status"`
	WorkflowKey  string       `json:"workflow_key"`
	OutputFolder string       `json:"output_folder"`
	Jobs         []JobSummary `json:"jobs"`
	CreatedAt    time.Time    `json:"created_at"`
}

func GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid job id")
		return
	}

	app := getApp(c)
	ctx := c.Request.Context()

	job, err := app.JobRepository.GetWithOutputs(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	events, err := app.EventRepository.ListByJob(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobResponse(job, events))
}

func GetBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid batch id")
		return
	}

	batch, err := getApp(c).BatchRepository.GetWithJobs(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	jobs := make([]JobSummary, len(batch.Jobs))
	for i, job := range batch.Jobs {
		jobs[i] = summarize(job)
	}

	c.JSON(http.StatusOK, BatchResponse{
		ID:           batch.ID.String(),
		Status:       string(models.DeriveBatchStatus(batch.Jobs)),
		WorkflowKey:  batch.WorkflowKey,
		OutputFolder: batch.OutputFolder,
		Jobs:         jobs,
		CreatedAt:    batch.CreatedAt,
	})
}

func jobResponse(job *models.Job, events []*models.Event) JobResponse {
	resp := JobResponse{
		ID:          job.ID.String(),
		TenantID:    job.TenantID,
		VariantID:   job.VariantID,
		BatchID:     job.BatchID,
		WorkflowKey: job.WorkflowKey,
		Status:      string(job.Status),
		FailedStage: job.FailedStage,
		Error:       job.Error,
		Prompts:     job.Prompts,
		Events:      make([]EventResponse, 0, len(events)),
		Images:      make([]ImageResponse, 0, len(job.Outputs)),
		CreatedAt:   job.CreatedAt,
	}
	if !job.CompletedAt.IsZero() {
		completed := job.CompletedAt.Time
		resp.CompletedAt = &completed
	}

	for _, output := range job.Outputs {
		resp.Images = append(resp.Images, ImageResponse{Index: output.Ordinal, Url: output.URL, MimeType: output.MimeType})
	}

	for _, event := range events {
		resp.Events = append(resp.Events, EventResponse{
			Type:      string(event.Type),
			Data:      eventData(event),
			CreatedAt: event.CreatedAt,
		})
	}

	return resp
}

func eventData(event *models.Event) map[string]any {
	switch event.Type {
	case types.EventJobStage:
		var data types.StageEventData
		if event.Decode(&data) == nil {
			return map[string]any{"stage": data.Stage}
		}
	case types.EventJobOutput:
		var data types.OutputEventData
		if event.Decode(&data) == nil {
			return map[string]any{"index": data.Index, "url": data.URL}
		}
	case types.EventJobFailed:
		var data types.FailureEventData
		if event.Decode(&data) == nil {
			return map[string]any{"stage": data.Stage, "message": data.Message}
		}
	}
	return nil
}
