// Package inference drives the two-stage external pipeline that turns
// a job URL into a minimum-years-of-experience score: a headless
// browser stage renders the page and emits its text, piped into an
// LLM-backed extractor stage that returns JSON. Both stages are
// external collaborators out of scope for this module; this package
// only owns invoking them safely and applying the inclusion threshold
// to their output. Trim (trim.go) implements the text-trimming
// heuristic as a standalone function; Run does not call it and pipes
// the render stage's stdout to the extractor unmodified.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// MinYearsThreshold is the inclusive-below cutoff for a job to make
// the digest: jobs requiring strictly fewer years than this are
// included, jobs requiring this many or more are excluded. Kept as an
// overridable var rather than a bare literal so an operator wiring a
// different policy doesn't have to fork the package.
var MinYearsThreshold = 4

// Pipeline configures the two external commands chained to score one
// job URL: node rendering the page, then an extractor scoring the
// rendered text.
type Pipeline struct {
	NodeBin         string
	PuppeteerScript string
	ExtractorBin    string
	ExtractorScript string
	Timeout         time.Duration
}

// Result is the parsed output of the extractor stage.
type Result struct {
	JobTitle string `json:"job_title"`
	MinYears int    `json:"min_years"`
}

// Include reports whether a job with this result should appear in the
// digest: strictly below MinYearsThreshold.
func (r Result) Include() bool {
	return r.MinYears < MinYearsThreshold
}

// Run renders url via the node stage and pipes its stdout into the
// extractor stage, returning the extractor's parsed JSON result. Both
// child processes are started in their own process group so that a
// timeout can terminate the whole group — the node stage may have
// spawned a Chrome process tree that a plain kill of the parent would
// leave behind as orphans.
func (p *Pipeline) Run(ctx context.Context, url string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	render := exec.CommandContext(ctx, p.NodeBin, p.PuppeteerScript, url)
	render.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	renderOut, err := render.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("inference: wire render stdout: %w", err)
	}
	var renderErr bytes.Buffer
	render.Stderr = &renderErr

	extract := exec.CommandContext(ctx, p.ExtractorBin, p.ExtractorScript)
	extract.Stdin = renderOut
	extract.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var extractOut, extractErr bytes.Buffer
	extract.Stdout = &extractOut
	extract.Stderr = &extractErr

	if err := render.Start(); err != nil {
		return Result{}, fmt.Errorf("inference: start render stage: %w", err)
	}
	if err := extract.Start(); err != nil {
		killGroup(render.Process.Pid)
		return Result{}, fmt.Errorf("inference: start extractor stage: %w", err)
	}

	extractDone := make(chan error, 1)
	go func() { extractDone <- extract.Wait() }()

	var extractWaitErr error
	select {
	case extractWaitErr = <-extractDone:
	case <-ctx.Done():
		killGroup(extract.Process.Pid)
		killGroup(render.Process.Pid)
		<-extractDone
		_ = render.Wait()
		return Result{}, fmt.Errorf("inference: pipeline timed out after %s: %w", p.Timeout, ctx.Err())
	}

	renderWaitErr := render.Wait()
	if renderWaitErr != nil {
		return Result{}, fmt.Errorf("inference: render stage failed: %w stderr=%s",
			renderWaitErr, truncate(renderErr.String(), 800))
	}
	if extractWaitErr != nil {
		return Result{}, fmt.Errorf("inference: extractor stage failed: %w stderr=%s",
			extractWaitErr, truncate(extractErr.String(), 800))
	}

	var parsed struct {
		JobTitle string `json:"job_title"`
		MinYears any    `json:"min_years"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(extractOut.Bytes()), &parsed); err != nil {
		return Result{}, fmt.Errorf("inference: invalid JSON from extractor raw=%s: %w",
			truncate(extractOut.String(), 800), err)
	}
	// A missing, non-numeric or negative min_years collapses to 0.
	result := Result{JobTitle: strings.TrimSpace(parsed.JobTitle)}
	if years, ok := parsed.MinYears.(float64); ok && years > 0 {
		result.MinYears = int(years)
	}
	return result, nil
}

// killGroup sends SIGTERM to pid's process group, then escalates to
// SIGKILL shortly after if the group hasn't exited. Errors are
// swallowed: this runs on the timeout path, where the process may
// already be gone.
func killGroup(pid int) {
	_ = unix.Kill(-pid, unix.SIGTERM)
	time.Sleep(time.Second)
	_ = unix.Kill(-pid, unix.SIGKILL)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
