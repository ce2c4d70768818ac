package ml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"leafscan/internal/metrics"
)

// Classifier turns an image on disk into a disease label.
type Classifier interface {
	Classify(ctx context.Context, imagePath string) (string, error)
}

type Reason string

const (
	ReasonNonZeroExit Reason = "nonzero-exit"
	ReasonEmptyOutput Reason = "empty-output"
	ReasonStartFailed Reason = "start-failed"
)

// ClassifierError is returned for every failed classifier run.
type ClassifierError struct {
	Reason Reason
	Code   int
	Err    error
}

func (e *ClassifierError) Error() string {
	switch e.Reason {
	case ReasonNonZeroExit:
		if errors.Is(e.Err, context.DeadlineExceeded) {
			return fmt.Sprintf("classifier timed out and was killed (exit code %d)", e.Code)
		}
		return fmt.Sprintf("classifier exited with code %d", e.Code)
	case ReasonEmptyOutput:
		return "classifier produced no output"
	default:
		if e.Err != nil {
			return fmt.Sprintf("classifier could not be started: %v", e.Err)
		}
		return "classifier could not be started"
	}
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}

type ProcessConfig struct {
	Command string
	Args    []string
	// Env is appended to the parent environment.
	Env     []string
	Timeout time.Duration
}

// processClassifier runs the model as a child process per image
type processClassifier struct {
	cfg     ProcessConfig
	metrics *metrics.Metrics
}

// NewProcessClassifier creates a Classifier that executes
// "Command Args... imagePath" and reads the label from stdout.
func NewProcessClassifier(cfg ProcessConfig, m *metrics.Metrics) (Classifier, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("classifier command is not configured")
	}
	return &processClassifier{cfg: cfg, metrics: m}, nil
}

func (c *processClassifier) Classify(ctx context.Context, imagePath string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	args := append(slices.Clone(c.cfg.Args), imagePath)
	// Command and args come from configuration; only the image path is request data.
	cmd := exec.CommandContext(ctx, c.cfg.Command, args...) //nolint:gosec
	if len(c.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), c.cfg.Env...)
	}
	cmd.WaitDelay = 2 * time.Second

	var stdout bytes.Buffer
	stderr := &lineLogger{prefix: "[classifier] "}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	done := c.metrics.TrackClassifier()
	err := cmd.Run()
	done()
	stderr.Flush()

	if err != nil {
		if ctx.Err() != nil {
			err = errors.Join(err, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Printf("Classifier failed for %s: exit code %d", imagePath, exitErr.ExitCode())
			return "", &ClassifierError{Reason: ReasonNonZeroExit, Code: exitErr.ExitCode(), Err: err}
		}
		log.Printf("Classifier could not run for %s: %v", imagePath, err)
		return "", &ClassifierError{Reason: ReasonStartFailed, Code: -1, Err: err}
	}

	label := strings.TrimSpace(stdout.String())
	if label == "" {
		log.Printf("Classifier returned empty output for %s", imagePath)
		return "", &ClassifierError{Reason: ReasonEmptyOutput}
	}

	return label, nil
}

// lineLogger forwards whatever a child writes to stderr into the service
// log, one line at a time.
type lineLogger struct {
	prefix string
	buf    []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

func (l *lineLogger) Flush() {
	if len(l.buf) > 0 {
		l.emit(l.buf)
		l.buf = nil
	}
}

func (l *lineLogger) emit(line []byte) {
	text := strings.TrimRight(string(line), "\r")
	if strings.TrimSpace(text) == "" {
		return
	}
	log.Printf("%s%s", l.prefix, text)
}
