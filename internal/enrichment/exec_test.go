package enrichment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogt/autogt/internal/models"
)

// writeAssistant drops a shell script into a temp dir and returns its path.
func writeAssistant(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assistant.sh")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestExecDriverName(t *testing.T) {
	driver := NewExecDriver("/opt/autogt/tara-assist", 0)
	assert.Equal(t, "exec:tara-assist", driver.Name())
}

func TestExecDriverAvailability(t *testing.T) {
	ctx := context.Background()

	assert.False(t, NewExecDriver("", 0).IsAvailable(ctx))
	assert.False(t, NewExecDriver(filepath.Join(t.TempDir(), "missing"), 0).IsAvailable(ctx))

	path := writeAssistant(t, "exit 0")
	assert.True(t, NewExecDriver(path, 0).IsAvailable(ctx))
}

func TestExecDriverSuggestThreats(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
echo '{"suggestions":[{"name":"CAN injection on Brake ECU","category":"tampering","vector":"local","property":"integrity","damage_scenario":"forged braking commands accepted","rationale":"exposed CAN interface","confidence":"high"},{"name":"Diagnostic session hijack","category":"elevation_of_privilege","vector":"physical","property":"authorization","rationale":"OBD access","confidence":"medium"}]}'`)

	driver := NewExecDriver(path, 5*time.Second)
	asset := heuristicAsset("Brake ECU", models.AssetHardware, "CAN", "OBD-II")

	suggestions, err := driver.SuggestThreats(context.Background(), asset, Options{Vehicle: "EV-2027"})
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, "CAN injection on Brake ECU", suggestions[0].Name)
	assert.Equal(t, models.ThreatTampering, suggestions[0].Category)
	assert.Equal(t, models.VectorLocal, suggestions[0].Vector)
	assert.Equal(t, models.PropertyIntegrity, suggestions[0].Property)
	assert.Equal(t, models.ConfidenceHigh, suggestions[0].Confidence)
	assert.Equal(t, models.ThreatElevationPrivilege, suggestions[1].Category)
}

func TestExecDriverSendsRequest(t *testing.T) {
	captured := filepath.Join(t.TempDir(), "request.json")
	path := writeAssistant(t, fmt.Sprintf(`cat > %q
echo '{"suggestions":[]}'`, captured))

	driver := NewExecDriver(path, 5*time.Second)
	asset := heuristicAsset("Gateway", models.AssetHardware, "Ethernet")

	_, err := driver.SuggestThreats(context.Background(), asset, Options{Vehicle: "EV-2027", MaxSuggestions: 5})
	require.NoError(t, err)

	raw, err := os.ReadFile(captured)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"suggest_threats"`)
	assert.Contains(t, string(raw), `"vehicle":"EV-2027"`)
	assert.Contains(t, string(raw), `"max_suggestions":5`)
	assert.Contains(t, string(raw), `"name":"Gateway"`)
}

func TestExecDriverCapsSuggestions(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
echo '{"suggestions":[{"name":"a","category":"spoofing","rationale":"r","confidence":"low"},{"name":"b","category":"tampering","rationale":"r","confidence":"low"},{"name":"c","category":"denial_of_service","rationale":"r","confidence":"low"}]}'`)

	driver := NewExecDriver(path, 5*time.Second)
	asset := heuristicAsset("Gateway", models.AssetHardware)

	suggestions, err := driver.SuggestThreats(context.Background(), asset, Options{MaxSuggestions: 2})
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
}

func TestExecDriverDefaultsConfidence(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
echo '{"suggestions":[{"name":"Firmware tampering","category":"tampering","rationale":"unsigned images"}]}'`)

	driver := NewExecDriver(path, 5*time.Second)
	asset := heuristicAsset("Gateway", models.AssetHardware)

	suggestions, err := driver.SuggestThreats(context.Background(), asset, Options{})
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, models.ConfidenceLow, suggestions[0].Confidence)
}

func TestExecDriverRejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  string
	}{
		{
			name:     "unknown category",
			response: `{"suggestions":[{"name":"x","category":"phishing","confidence":"low"}]}`,
			wantErr:  "unknown category",
		},
		{
			name:     "unknown vector",
			response: `{"suggestions":[{"name":"x","category":"spoofing","vector":"quantum","confidence":"low"}]}`,
			wantErr:  "unknown vector",
		},
		{
			name:     "unknown confidence",
			response: `{"suggestions":[{"name":"x","category":"spoofing","confidence":"absolute"}]}`,
			wantErr:  "unknown confidence",
		},
		{
			name:     "missing name",
			response: `{"suggestions":[{"category":"spoofing","confidence":"low"}]}`,
			wantErr:  "missing name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeAssistant(t, "cat >/dev/null\necho '"+tt.response+"'")
			driver := NewExecDriver(path, 5*time.Second)
			asset := heuristicAsset("Gateway", models.AssetHardware)

			_, err := driver.SuggestThreats(context.Background(), asset, Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExecDriverReportedError(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
echo '{"error":"model overloaded"}'`)

	driver := NewExecDriver(path, 5*time.Second)
	asset := heuristicAsset("Gateway", models.AssetHardware)

	_, err := driver.SuggestThreats(context.Background(), asset, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestExecDriverNonZeroExit(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
echo "no API key configured" >&2
exit 3`)

	driver := NewExecDriver(path, 5*time.Second)
	asset := heuristicAsset("Gateway", models.AssetHardware)

	_, err := driver.SuggestThreats(context.Background(), asset, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key configured")
}

func TestExecDriverMalformedOutput(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
echo 'here are some threats I thought of'`)

	driver := NewExecDriver(path, 5*time.Second)
	asset := heuristicAsset("Gateway", models.AssetHardware)

	_, err := driver.SuggestThreats(context.Background(), asset, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding assistant response")
}

func TestExecDriverTimeout(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
sleep 5
echo '{"suggestions":[]}'`)

	driver := NewExecDriver(path, 100*time.Millisecond)
	asset := heuristicAsset("Gateway", models.AssetHardware)

	_, err := driver.SuggestThreats(context.Background(), asset, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecDriverReviewRisk(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
echo '{"review":{"agrees":true,"note":"level matches rated impact","confidence":"medium"}}'`)

	driver := NewExecDriver(path, 5*time.Second)
	value := reviewValue(t, models.ImpactMajor, models.LikelihoodHigh)

	note, err := driver.ReviewRisk(context.Background(), value, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.ID, note.RiskID)
	assert.True(t, note.Agrees)
	assert.Equal(t, models.ConfidenceMedium, note.Confidence)
}

func TestExecDriverReviewMissing(t *testing.T) {
	path := writeAssistant(t, `cat >/dev/null
echo '{}'`)

	driver := NewExecDriver(path, 5*time.Second)
	value := reviewValue(t, models.ImpactMajor, models.LikelihoodHigh)

	_, err := driver.ReviewRisk(context.Background(), value, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no review")
}

func TestExecDriverNilInputs(t *testing.T) {
	driver := NewExecDriver("assistant", 0)

	_, err := driver.SuggestThreats(context.Background(), nil, Options{})
	assert.Error(t, err)

	_, err = driver.ReviewRisk(context.Background(), nil, Options{})
	assert.Error(t, err)
}
