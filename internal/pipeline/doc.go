// Package pipeline runs a batch of narrated images through every stage.
//
// LoadBatch pairs the lines of a text file with numbered images. Orchestrator
// translates the text once for all target languages, then for each language
// produces one clip per line (audio and video in parallel, then merge) with a
// bounded number of lines in flight, and concatenates the clips into the final
// video. Each language is recorded in the run history and reported on its own,
// so one failing language leaves the others intact.
package pipeline
