package template

import (
	"testing"

	"github.com/dukex/soarflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SimpleExpression(t *testing.T) {
	data := map[string]any{
		"sender":     "alice@suspicious.com",
		"severity":   8,
		"quarantine": true,
	}

	result, err := Render("{{ .sender }}", data)
	require.NoError(t, err)
	assert.Equal(t, "alice@suspicious.com", result)

	result, err = Render("{{ .quarantine }}", data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	// numbers always come back as float64
	result, err = Render("{{ .severity }}", data)
	require.NoError(t, err)
	assert.Equal(t, 8.0, result)
}

func TestRender_JSONObject(t *testing.T) {
	data := map[string]any{
		"email": map[string]any{"sender_domain": "suspicious.com"},
		"ips":   []any{"203.0.113.5", "198.51.100.7"},
	}

	result, err := Render(`{"domain": "{{ .email.sender_domain }}", "count": {{ len .ips }}}`, data)
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "suspicious.com", resultMap["domain"])
	assert.Equal(t, 2.0, resultMap["count"])
}

func TestRender_ErrorHandling(t *testing.T) {
	data := map[string]any{"test": "value"}

	_, err := Render("{ invalid..expression }", data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse json")

	_, err = Render("{{ nonexistent.field }}", data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "function \"nonexistent\" not defined")
}

func TestRenderString_KeepsText(t *testing.T) {
	result, err := RenderString("severity {{ .severity }}", map[string]any{"severity": 9})
	require.NoError(t, err)
	assert.Equal(t, "severity 9", result)
}

func TestRenderWithContext(t *testing.T) {
	t.Setenv("SOC_TEAM", "blue")

	ec := models.NewExecutionContext(models.Seed{
		"email": map[string]any{"sender_ip": "203.0.113.5"},
	})
	ec.Ticket = &models.Ticket{ID: "TICKET-1001", Priority: "High"}

	result, err := RenderWithContext(
		"{{ .ticket.id }} for {{ field \"email.sender_ip\" . }} ({{ .env.SOC_TEAM }})", ec)
	require.NoError(t, err)
	assert.Equal(t, "TICKET-1001 for 203.0.113.5 (blue)", result)
}
