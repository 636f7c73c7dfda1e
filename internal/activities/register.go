package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.UploadDocumentActivity)
	w.RegisterActivity(a.SplitPagesActivity)
	w.RegisterActivity(a.ExtractPagesActivity)
	w.RegisterActivity(a.ConsolidateActivity)
	w.RegisterActivity(a.ExtractProfileActivity)
	w.RegisterActivity(a.PersistProfileActivity)
	w.RegisterActivity(a.UpdateRunStatusActivity)
}
