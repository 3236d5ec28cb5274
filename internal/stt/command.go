package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"aarogya/internal/audio"
)

// CommandProvider is the offline recognizer. It writes the recording to a
// temp WAV file and runs a local command, reading the transcript from
// stdout. The command string may contain {input}, replaced with the WAV
// path, and {lang}, replaced with the locale tag.
type CommandProvider struct {
	command string
	timeout time.Duration
	logger  *log.Logger
}

func NewCommandProvider(command string, timeout time.Duration, logger *log.Logger) *CommandProvider {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CommandProvider{command: command, timeout: timeout, logger: logger}
}

func (c *CommandProvider) Name() string {
	return "command"
}

func (c *CommandProvider) Recognize(ctx context.Context, rec *audio.Recording, localeTag string) Recognition {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tmpFile, err := os.CreateTemp("", "aarogya-offline-*.wav")
	if err != nil {
		return unavailable(fmt.Errorf("create temp file: %w", err), "")
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(rec.WAV); err != nil {
		_ = tmpFile.Close()
		return unavailable(fmt.Errorf("write temp file: %w", err), "")
	}
	_ = tmpFile.Close()

	cmdStr := strings.ReplaceAll(c.command, "{input}", tmpPath)
	cmdStr = strings.ReplaceAll(cmdStr, "{lang}", localeTag)
	if strings.TrimSpace(cmdStr) == "" {
		return unavailable(errors.New("empty command after substitution"), "")
	}

	c.logger.Printf("[Offline STT] command: %s wav_size=%d", cmdStr, len(rec.WAV))

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	// children of sh may hold stdout open after the kill
	cmd.WaitDelay = time.Second
	output, err := cmd.Output()
	latency := time.Since(start)
	if err != nil {
		var stderr string
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		c.logger.Printf("[Offline STT] command failed after %s: %v %s", latency.Round(time.Millisecond), err, stderr)
		return unavailable(fmt.Errorf("run command: %w", err), stderr)
	}

	text := strings.TrimSpace(string(output))
	c.logger.Printf("[Offline STT] output_size=%d latency=%s", len(output), latency.Round(time.Millisecond))
	if text == "" {
		return unintelligible("")
	}
	return recognized(text, string(output))
}
