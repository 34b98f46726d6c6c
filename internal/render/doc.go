// Package render drives an asynchronous render job from submission to a
// downloaded artifact.
//
// The Poller submits scenes, polls the job status on a fixed interval until the
// service reports ready, failed, or the overall deadline passes, and then
// streams the artifact to <jobID>.mp4 in the output directory. Status values
// are an explicit enum with a total transition function so unknown remote
// strings never terminate a job by accident.
package render
