// Package pipeline runs the steps that follow a discovery.
//
// A discovery produces a model.Session. The pipeline resolves the link
// configuration for the session's URL, records the run in the history
// database and renders reports. Each stage is a Step, executed in order
// with shared logging and error handling.
package pipeline
