package export

// Reporter relays export lifecycle notifications to the presentation
// layer. ExportStarted fires before any decode work; ExportFinished fires
// exactly once per job, after every output is flushed and closed, for
// success and failure alike. ExportProgress is advisory and may fire any
// number of times in between.
type Reporter interface {
	ExportStarted()
	ExportProgress(path string, done, total int)
	ExportFinished(message string)
}
