// Package runner executes the three lifecycle phases of one job (install,
// script, before_deploy) as external processes, in order, stopping at the
// first phase that exits non-zero. There are no retries: a flaky network
// during install fails the job exactly like a broken build.
package runner
