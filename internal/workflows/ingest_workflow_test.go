package workflows

import (
	"context"
	"errors"
	"testing"

	"coeus/internal/activities"
	"coeus/internal/chunk"
	"coeus/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func newIngestEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(IngestJobWorkflow)
	registerActivityName(env, "ExtractDocumentActivity", func(context.Context, activities.ExtractDocumentInput) (activities.ExtractDocumentOutput, error) {
		return activities.ExtractDocumentOutput{}, nil
	})
	registerActivityName(env, "LabelChunksActivity", func(context.Context, activities.LabelChunksInput) (activities.LabelChunksOutput, error) {
		return activities.LabelChunksOutput{}, nil
	})
	registerActivityName(env, "StoreChunksActivity", func(context.Context, activities.StoreChunksInput) (activities.StoreChunksOutput, error) {
		return activities.StoreChunksOutput{}, nil
	})
	registerActivityName(env, "UpdateJobStatusActivity", func(context.Context, activities.UpdateJobStatusInput) error { return nil })
	return env
}

func sampleInput() IngestJobInput {
	return IngestJobInput{JobID: "j1", UserID: "u1", UserName: "alice", PDFPath: "/tmp/doc.pdf", Filename: "doc.pdf"}
}

func threeChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{Text: "a", JobID: "j1", UserID: "u1", Index: 0},
		{Text: "b", JobID: "j1", UserID: "u1", Index: 1},
		{Text: "c", JobID: "j1", UserID: "u1", Index: 2},
	}
}

func TestIngestJobWorkflowSuccess(t *testing.T) {
	env := newIngestEnv(t)
	chunks := threeChunks()
	labeled := []models.LabeledChunk{
		{JobID: "j1", UserID: "u1", Content: "a", Summary: "sa"},
		{JobID: "j1", UserID: "u1", Content: "b", Summary: "sb"},
		{JobID: "j1", UserID: "u1", Content: "c", Summary: "sc"},
	}

	env.OnActivity("ExtractDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractDocumentOutput{Chunks: chunks, Visuals: []string{"![fig](f.png)"}, TextLen: 42}, nil)
	env.OnActivity("LabelChunksActivity", mock.Anything, activities.LabelChunksInput{JobID: "j1", UserID: "u1", Chunks: chunks}).
		Return(activities.LabelChunksOutput{Labeled: labeled, Batches: 1}, nil)
	env.OnActivity("StoreChunksActivity", mock.Anything, activities.StoreChunksInput{JobID: "j1", UserName: "alice", Labeled: labeled}).
		Return(activities.StoreChunksOutput{VectorsStored: 3, DocsIndexed: 3}, nil)
	env.OnActivity("UpdateJobStatusActivity", mock.Anything, activities.UpdateJobStatusInput{JobID: "j1", Status: models.StatusCompleted}).
		Return(nil)

	env.ExecuteWorkflow(IngestJobWorkflow, sampleInput())
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var state JobState
	require.NoError(t, env.GetWorkflowResult(&state))
	require.Equal(t, models.StatusCompleted, state.Status)
	require.Equal(t, 3, state.ChunkCount)
	require.Equal(t, 3, state.ChromaCount)
	require.Equal(t, 3, state.ElasticCount)
	require.Equal(t, 1, state.VisualCount)
	require.Empty(t, state.Error)
}

func TestIngestJobWorkflowExtractFailureSkipsLaterStages(t *testing.T) {
	env := newIngestEnv(t)

	env.OnActivity("ExtractDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractDocumentOutput{}, errors.New("no extractable text found"))
	env.OnActivity("UpdateJobStatusActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(IngestJobWorkflow, sampleInput())
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var state JobState
	require.NoError(t, env.GetWorkflowResult(&state))
	require.Equal(t, models.StatusFailed, state.Status)
	require.Equal(t, "extract", state.Stage)
	require.Contains(t, state.Error, "no extractable text")
	env.AssertNotCalled(t, "LabelChunksActivity", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "StoreChunksActivity", mock.Anything, mock.Anything)
}

func TestIngestJobWorkflowStoreFailureKeepsFirstError(t *testing.T) {
	env := newIngestEnv(t)
	chunks := threeChunks()

	env.OnActivity("ExtractDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractDocumentOutput{Chunks: chunks}, nil)
	env.OnActivity("LabelChunksActivity", mock.Anything, mock.Anything).
		Return(activities.LabelChunksOutput{Labeled: []models.LabeledChunk{{Content: "a"}, {Content: "b"}, {Content: "c"}}, Batches: 1}, nil)
	env.OnActivity("StoreChunksActivity", mock.Anything, mock.Anything).
		Return(activities.StoreChunksOutput{}, errors.New("chroma error 503: unavailable"))
	env.OnActivity("UpdateJobStatusActivity", mock.Anything, mock.MatchedBy(func(in activities.UpdateJobStatusInput) bool {
		return in.Status == models.StatusFailed && in.FailReason != ""
	})).Return(nil)

	env.ExecuteWorkflow(IngestJobWorkflow, sampleInput())
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var state JobState
	require.NoError(t, env.GetWorkflowResult(&state))
	require.Equal(t, models.StatusFailed, state.Status)
	require.Equal(t, "store", state.Stage)
	require.Contains(t, state.Error, "chroma error 503")
	require.Equal(t, 3, state.ChunkCount)
}

func TestJobStateApplyStickyFailure(t *testing.T) {
	var s JobState
	s.Apply(StagePatch{Status: models.StatusFailed, Stage: "extract", Error: "boom"})
	s.Apply(StagePatch{Status: models.StatusCompleted, Stage: "store", Error: "later", ChromaCount: intPtr(0)})
	require.Equal(t, models.StatusFailed, s.Status)
	require.Equal(t, "boom", s.Error)
	require.Equal(t, "store", s.Stage)
	require.Equal(t, 0, s.ChromaCount)
}

func TestJobStateApplyZeroCounts(t *testing.T) {
	s := JobState{ChromaCount: 5, ElasticCount: 5}
	s.Apply(StagePatch{ChromaCount: intPtr(0), ElasticCount: intPtr(0)})
	require.Equal(t, 0, s.ChromaCount)
	require.Equal(t, 0, s.ElasticCount)
}
