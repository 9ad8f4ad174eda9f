package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

// Request kinds spoken over the assistant protocol.
const (
	kindSuggestThreats = "suggest_threats"
	kindReviewRisk     = "review_risk"
)

// ExecDriver talks to an external assistant command. The command receives
// one JSON request on stdin and must print one JSON response on stdout,
// exiting zero on success. Anything on stderr is folded into the error.
type ExecDriver struct {
	command string
	timeout time.Duration
}

// NewExecDriver creates a driver for the given assistant command. A zero
// timeout means requests run until the caller's context ends.
func NewExecDriver(command string, timeout time.Duration) *ExecDriver {
	return &ExecDriver{command: command, timeout: timeout}
}

// Name implements Driver. The command's base name keeps cache keys apart
// when different assistants are configured.
func (d *ExecDriver) Name() string {
	return "exec:" + filepath.Base(d.command)
}

// IsAvailable implements Driver by probing the command on PATH.
func (d *ExecDriver) IsAvailable(_ context.Context) bool {
	if d.command == "" {
		return false
	}
	_, err := exec.LookPath(d.command)
	return err == nil
}

type execRequest struct {
	Kind    string        `json:"kind"`
	Vehicle string        `json:"vehicle,omitempty"`
	Max     int           `json:"max_suggestions,omitempty"`
	Asset   *models.Asset `json:"asset,omitempty"`
	Risk    *risk.Value   `json:"risk,omitempty"`
}

type execResponse struct {
	Suggestions []ThreatSuggestion `json:"suggestions,omitempty"`
	Review      *ReviewNote        `json:"review,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// SuggestThreats implements Driver.
func (d *ExecDriver) SuggestThreats(ctx context.Context, asset *models.Asset, opts Options) ([]ThreatSuggestion, error) {
	if asset == nil {
		return nil, fmt.Errorf("no asset given")
	}

	resp, err := d.run(ctx, execRequest{
		Kind:    kindSuggestThreats,
		Vehicle: opts.Vehicle,
		Max:     opts.MaxSuggestions,
		Asset:   asset,
	})
	if err != nil {
		return nil, err
	}

	for i := range resp.Suggestions {
		if err := validateSuggestion(&resp.Suggestions[i]); err != nil {
			return nil, fmt.Errorf("assistant suggestion %d: %w", i, err)
		}
	}

	suggestions := resp.Suggestions
	if opts.MaxSuggestions > 0 && len(suggestions) > opts.MaxSuggestions {
		suggestions = suggestions[:opts.MaxSuggestions]
	}
	return suggestions, nil
}

// ReviewRisk implements Driver.
func (d *ExecDriver) ReviewRisk(ctx context.Context, value *risk.Value, opts Options) (ReviewNote, error) {
	if value == nil {
		return ReviewNote{}, fmt.Errorf("no risk value given")
	}

	resp, err := d.run(ctx, execRequest{
		Kind:    kindReviewRisk,
		Vehicle: opts.Vehicle,
		Risk:    value,
	})
	if err != nil {
		return ReviewNote{}, err
	}
	if resp.Review == nil {
		return ReviewNote{}, fmt.Errorf("assistant returned no review")
	}

	note := *resp.Review
	if note.RiskID == "" {
		note.RiskID = value.ID
	}
	if note.Confidence != "" && !models.IsValidConfidenceLevel(note.Confidence) {
		return ReviewNote{}, fmt.Errorf("assistant review has unknown confidence: %s", note.Confidence)
	}
	return note, nil
}

func (d *ExecDriver) run(ctx context.Context, req execRequest) (*execResponse, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding assistant request: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.command)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("assistant %s: %w", d.command, ctx.Err())
		}
		return nil, fmt.Errorf("assistant %s failed: %w (stderr: %s)",
			d.command, err, strings.TrimSpace(stderr.String()))
	}

	var resp execResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decoding assistant response: %w (output: %s)",
			err, strings.TrimSpace(stdout.String()))
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("assistant reported: %s", resp.Error)
	}
	return &resp, nil
}

// validateSuggestion rejects responses that would smuggle unknown enum
// values into the threat catalog.
func validateSuggestion(s *ThreatSuggestion) error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if !models.IsValidThreatCategory(s.Category) {
		return fmt.Errorf("unknown category: %s", s.Category)
	}
	if s.Vector != "" && !models.IsValidAttackVector(s.Vector) {
		return fmt.Errorf("unknown vector: %s", s.Vector)
	}
	if s.Property != "" && !models.IsValidSecurityProperty(s.Property) {
		return fmt.Errorf("unknown property: %s", s.Property)
	}
	if s.Confidence == "" {
		s.Confidence = models.ConfidenceLow
	} else if !models.IsValidConfidenceLevel(s.Confidence) {
		return fmt.Errorf("unknown confidence: %s", s.Confidence)
	}
	return nil
}
