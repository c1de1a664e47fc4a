// Package document defines the state object threaded through the workflow
// graph together with the structured review feedback produced by the review
// stage. The state is mutated in place by stages during a run and serialized
// losslessly by checkpoint stores.
package document
