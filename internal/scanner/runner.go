package scanner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
)

// EvidenceSink is the collaborator the runner persists raw captures to.
type EvidenceSink interface {
	SaveText(tool, target, text string)
}

// toolResult is what one tool task hands back to the scheduler. A tool that
// failed to start reports started=false with empty output; the scheduler
// treats it as a completed slot, never an error.
type toolResult struct {
	tool     string
	started  bool
	exitCode int
	output   string
	raws     []finding.Raw
}

// emit delivers a log line unless the consumer has gone away. Dropping lines
// after cancellation keeps finished-in-background tool tasks from blocking
// on a queue nobody drains.
func emit(ctx context.Context, logq chan<- string, line string) {
	select {
	case logq <- line:
	case <-ctx.Done():
	}
}

// runToolTask spawns one tool subprocess, streams its merged output line by
// line to the log queue as it arrives, persists the capture as evidence, and
// classifies it into raw findings. Every failure mode is converted to a
// diagnostic line; this function never reports an error to the scheduler.
func runToolTask(ctx context.Context, tool Tool, argv []string, target string, logq chan<- string, evidence EvidenceSink, classifier Classifier) toolResult {
	result := toolResult{tool: tool.Name}
	emit(ctx, logq, fmt.Sprintf("--- Running %s ---", tool.Name))

	if len(argv) == 0 {
		msg := fmt.Sprintf("[%s] empty command template.", tool.Name)
		evidence.SaveText(tool.Name+"_error", target, msg)
		emit(ctx, logq, msg)
		return result
	}

	// Subprocesses are started without a context on purpose: cancellation
	// stops log consumption only, already-launched tools run to completion.
	cmd := exec.Command(argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		msg := fmt.Sprintf("[%s] failed to start: %v", tool.Name, err)
		evidence.SaveText(tool.Name+"_error", target, msg)
		emit(ctx, logq, msg)
		return result
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		var msg string
		if errors.Is(err, exec.ErrNotFound) {
			msg = fmt.Sprintf("[%s] NOT INSTALLED or not in PATH.", tool.Name)
		} else {
			msg = fmt.Sprintf("[%s] failed to start: %v", tool.Name, err)
		}
		evidence.SaveText(tool.Name+"_error", target, msg)
		emit(ctx, logq, msg)
		return result
	}
	result.started = true

	var lines []string
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		text := strings.TrimRight(sc.Text(), "\r\n")
		if text == "" {
			continue
		}
		lines = append(lines, text)
		emit(ctx, logq, fmt.Sprintf("[%s] %s", tool.Name, text))
	}

	_ = cmd.Wait()
	result.exitCode = cmd.ProcessState.ExitCode()
	emit(ctx, logq, fmt.Sprintf("[%s] Exit code: %d", tool.Name, result.exitCode))

	result.output = strings.Join(lines, "\n")
	evidence.SaveText(tool.Name, target, result.output)

	result.raws = classifyOutput(ctx, tool.Name, target, result.output, logq, evidence, classifier)
	if result.exitCode != 0 {
		result.raws = append(result.raws, finding.Raw{
			Tool:     tool.Name,
			Type:     "non_zero_exit",
			Severity: "low",
			Message:  fmt.Sprintf("%s exited with non-zero return code %d.", tool.Name, result.exitCode),
			Target:   target,
		})
	}
	return result
}

// classifyOutput invokes the classifier with a recovery boundary: a panic or
// error becomes a diagnostic line plus empty findings, never a fault that
// aborts the run.
func classifyOutput(ctx context.Context, tool, target, output string, logq chan<- string, evidence EvidenceSink, classifier Classifier) (raws []finding.Raw) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("[%s] classifier error: %v", tool, r)
			evidence.SaveText(tool+"_classifier_error", target, msg)
			emit(ctx, logq, msg)
			raws = nil
		}
	}()

	raws, err := classifier.Classify(tool, target, output)
	if err != nil {
		msg := fmt.Sprintf("[%s] classifier error: %v", tool, err)
		evidence.SaveText(tool+"_classifier_error", target, msg)
		emit(ctx, logq, msg)
		return nil
	}
	return raws
}
