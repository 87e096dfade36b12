// Package jobs tracks ingestion jobs through their lifecycle.
//
// A job starts pending, moves to processing when its worker starts, and
// ends completed or failed. Terminal jobs never change. Progress is
// monotonic while processing and only reaches 100 on completion.
//
// Reads go straight to the JobStore snapshot and never wait for writers;
// each job's mutations are serialized independently of other jobs.
//
// Cancellation marks the job failed and cancels the context handed to the
// job's worker by Bind, so in-flight calls stop promptly:
//
//	ctx, done := registry.Bind(context.Background(), id)
//	defer done()
//	... // worker checks ctx.Err() and registry.IsCancelled between stages
package jobs
