// Package planner turns a probed MediaProfile into a FilePlan: the action
// (skip, remux, audio re-encode, transcode), the encoder choice, and the
// output and temporary paths. Classify is pure and holds the decision table;
// BuildPlan adds everything the executor needs.
package planner
