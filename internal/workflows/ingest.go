package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"coeus/internal/activities"
	"coeus/internal/models"
)

const QueryGetJobState = "GetJobState"

// IngestJobWorkflow runs extract, label, and store in order. A stage
// failure marks the job failed and skips the remaining stages; the workflow
// itself always completes and returns the terminal state so callers get the
// recorded error instead of a workflow failure.
func IngestJobWorkflow(ctx workflow.Context, input IngestJobInput) (JobState, error) {
	state := JobState{JobID: input.JobID, Status: models.StatusPending, Stage: "init"}
	if err := workflow.SetQueryHandler(ctx, QueryGetJobState, func() (JobState, error) {
		return state, nil
	}); err != nil {
		return state, err
	}

	// Stages handle their own retries and degradation internally, so a
	// failed activity is a failed stage.
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var extractOut activities.ExtractDocumentOutput
	err := workflow.ExecuteActivity(ctx, "ExtractDocumentActivity", activities.ExtractDocumentInput{
		JobID:    input.JobID,
		UserID:   input.UserID,
		PDFPath:  input.PDFPath,
		Filename: input.Filename,
	}).Get(ctx, &extractOut)
	if err != nil {
		state.Apply(failPatch("extract", err))
	} else {
		state.Apply(StagePatch{
			Status:      models.StatusExtracted,
			Stage:       "extract",
			ChunkCount:  intPtr(len(extractOut.Chunks)),
			VisualCount: intPtr(len(extractOut.Visuals)),
		})
	}

	var labelOut activities.LabelChunksOutput
	if state.Status != models.StatusFailed {
		err := workflow.ExecuteActivity(ctx, "LabelChunksActivity", activities.LabelChunksInput{
			JobID:  input.JobID,
			UserID: input.UserID,
			Chunks: extractOut.Chunks,
		}).Get(ctx, &labelOut)
		if err != nil {
			state.Apply(failPatch("label", err))
		} else {
			state.Apply(StagePatch{
				Status:        models.StatusLabeled,
				Stage:         "label",
				FailedBatches: intPtr(labelOut.FailedBatches),
			})
		}
	}

	if state.Status != models.StatusFailed {
		var storeOut activities.StoreChunksOutput
		err := workflow.ExecuteActivity(ctx, "StoreChunksActivity", activities.StoreChunksInput{
			JobID:    input.JobID,
			UserName: input.UserName,
			Labeled:  labelOut.Labeled,
		}).Get(ctx, &storeOut)
		if err != nil {
			state.Apply(failPatch("store", err))
		} else {
			state.Apply(StagePatch{
				Status:       models.StatusCompleted,
				Stage:        "store",
				ChromaCount:  intPtr(storeOut.VectorsStored),
				ElasticCount: intPtr(storeOut.DocsIndexed),
			})
		}
	}

	// Best effort: the workflow result is authoritative even if the status
	// row lags behind.
	_ = workflow.ExecuteActivity(ctx, "UpdateJobStatusActivity", activities.UpdateJobStatusInput{
		JobID:      input.JobID,
		Status:     state.Status,
		FailReason: state.Error,
	}).Get(ctx, nil)

	return state, nil
}

func failPatch(stage string, err error) StagePatch {
	return StagePatch{Status: models.StatusFailed, Stage: stage, Error: err.Error()}
}
