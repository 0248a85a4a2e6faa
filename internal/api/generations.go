package api

import (
	"net/http"
	"time"

	"github.com/cozy-creator/product-studio/internal/credits"
	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type GenerationResponse struct {
	WorkflowKey string           `json:"workflow_key"`
	BatchID     *uuid.UUID       `json:"batch_id,omitempty"`
	Jobs        []JobSummary     `json:"jobs"`
	Credits     credits.Decision `json:"credits"`
}

type JobSummary struct {
	ID           string     `json:"id"`
	VariantID    string     `json:"variant_id"`
	Status       string     `json:"status"`
	Variations   int        `json:"variations"`
	OutputFolder string     `json:"output_folder,omitempty"`
	LedgerRef    *uuid.UUID `json:"credit_reference,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func summarize(job *models.Job) JobSummary {
	return JobSummary{
		ID:           job.ID.String(),
		VariantID:    job.VariantID,
		Status:       string(job.Status),
		Variations:   job.Variations,
		OutputFolder: job.OutputFolder,
		LedgerRef:    job.LedgerRef,
		CreatedAt:    job.CreatedAt,
	}
}

// SubmitGeneration admits a generation request. Inline workflows have
// already finished when this returns; everything else is queued.
func SubmitGeneration(c *gin.Context) {
	var req types.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "failed to parse json request body")
		return
	}

	admission, err := getApp(c).Admission.Submit(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	jobs := make([]JobSummary, len(admission.Jobs))
	for i, job := range admission.Jobs {
		jobs[i] = summarize(job)
	}

	c.JSON(http.StatusAccepted, GenerationResponse{
		WorkflowKey: string(admission.WorkflowKey),
		BatchID:     admission.BatchID,
		Jobs:        jobs,
		Credits:     admission.Credits,
	})
}
