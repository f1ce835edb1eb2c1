package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ExtractDocumentActivity)
	w.RegisterActivity(a.LabelChunksActivity)
	w.RegisterActivity(a.StoreChunksActivity)
	w.RegisterActivity(a.UpdateJobStatusActivity)
}
