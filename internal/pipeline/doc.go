// Package pipeline orchestrates file discovery, per-file processing, and
// batch summary reporting.
//
// Types:
//   - RunConfig (validated Config plus the hardware trial result)
//   - Deps (Inspector, Runner, Logger, metrics Recorder)
//   - Outcome, RunStats (per-action counters, byte totals, failures)
//   - Executor (ffmpeg with retry, promotion, original removal)
//
// Functions:
//   - Run(ctx, rc, deps) → RunStats
//     Batch runner: discover → for each file: inspect → classify →
//     existing-sibling check → resolve collisions → execute → record.
//     With Watch set, keeps processing new files until ctx is cancelled.
//   - Discover(root, warn) → []string
//     Walk directory, filter by extension (case-insensitive), ignore work
//     files, skip unreadable subdirectories, sort deterministically.
package pipeline
