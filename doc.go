// Package docforge coordinates a cyclical document generation workflow.
//
// A run drafts a high-level design, derives the low-level design, reviews
// the assembled draft against a structural schema and loops back for a
// bounded number of revision cycles when the review demands it. Once the
// review passes (or the revision budget is spent) the document is formatted
// and the run suspends for a human verdict; approval finishes the run,
// rejection loops it back into regeneration.
//
// End-users interact via the Service façade exposed by the root package:
//
//	srv, _ := docforge.New()
//	run, _ := srv.Start(ctx, "Design a rate limiter for the public API")
//	if run.Outcome == engine.OutcomePaused {
//	    run, _ = srv.Resume(ctx, run.ID, true, "ship it")
//	}
//	fmt.Println(run.State.FinalDocument)
//
// Every suspension point is checkpointed, so a paused run survives a process
// restart and can be resumed purely from its persisted state.
package docforge
