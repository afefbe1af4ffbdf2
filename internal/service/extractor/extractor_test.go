package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/polaris/backend/internal/metrics"
	"github.com/zhouzirui/polaris/backend/internal/model/discovery"
	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
)

// scripted returns one reply per call; a nil entry fails the call.
type scripted struct {
	replies  []*string
	requests []gateway.Request
}

func text(s string) *string { return &s }

func (s *scripted) Generate(_ context.Context, req gateway.Request) (*gateway.Completion, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.replies) || s.replies[idx] == nil {
		return nil, gateway.ErrUpstream
	}
	return &gateway.Completion{Text: *s.replies[idx]}, nil
}

func TestExtractStrictJSON(t *testing.T) {
	gw := &scripted{replies: []*string{text(`{"pain":"churn","users":null,"kpi":null,"budget":null,"confidence":{"pain":0.9}}`)}}
	outcome := New(gw).Extract(context.Background(), "we lose customers")

	require.True(t, outcome.Succeeded())
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, map[string]any{discovery.SlotPain: "churn"}, outcome.Fields)
	assert.Equal(t, map[string]any{"pain": 0.9}, outcome.Confidence)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Contains(t, req.Prompt, `Message: "we lose customers"`)
	assert.Equal(t, 0.0, req.Temperature)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
}

func TestExtractFallsBackToEmbeddedObject(t *testing.T) {
	gw := &scripted{replies: []*string{text("Sure! Here it is:\n```json\n{\"budget\": 30000}\n```\nAnything else? {not json}")}}
	outcome := New(gw).Extract(context.Background(), "30k")

	require.True(t, outcome.Succeeded())
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 30000.0, outcome.Fields[discovery.SlotBudget])
}

func TestExtractRetriesOnceWithStricterPrompt(t *testing.T) {
	gw := &scripted{replies: []*string{text("I think the pain is churn."), text(`{"users":"retail managers"}`)}}
	outcome := New(gw).Extract(context.Background(), "for retail managers")

	require.True(t, outcome.Succeeded())
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, "retail managers", outcome.Fields[discovery.SlotUsers])

	require.Len(t, gw.requests, 2)
	assert.NotEqual(t, gw.requests[0].Prompt, gw.requests[1].Prompt)
	assert.True(t, strings.HasPrefix(gw.requests[1].Prompt, "You MUST output valid JSON only."))
	assert.Contains(t, gw.requests[1].Prompt, `Message: "for retail managers"`)
}

func TestExtractNoiseOnBothAttemptsFails(t *testing.T) {
	m := metrics.New()
	gw := &scripted{replies: []*string{text("lorem ipsum"), text("{still not json")}}
	outcome := New(gw, WithMetrics(m)).Extract(context.Background(), "hello")

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, ReasonMalformed, outcome.Reason)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Len(t, gw.requests, 2)

	slots := discovery.Slots{discovery.SlotPain: "X"}
	outcome.Apply(slots)
	assert.Equal(t, discovery.Slots{discovery.SlotPain: "X"}, slots)

	count, err := testutil.GatherAndCount(m.Registry(), "polaris_extraction_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExtractGatewayFailureDoesNotRetry(t *testing.T) {
	gw := &scripted{replies: []*string{nil, text(`{"pain":"never used"}`)}}
	outcome := New(gw).Extract(context.Background(), "hello")

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, ReasonUpstream, outcome.Reason)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Len(t, gw.requests, 1)
}

func TestExtractRetryAfterNoiseThenGatewayFailure(t *testing.T) {
	gw := &scripted{replies: []*string{text("noise"), nil}}
	outcome := New(gw).Extract(context.Background(), "hello")

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, ReasonUpstream, outcome.Reason)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestExtractKeepsUnexpectedTypes(t *testing.T) {
	gw := &scripted{replies: []*string{text(`{"kpi":["conversion","retention"],"budget":1.5e4,"confidence":"high","extra":"ignored"}`)}}
	outcome := New(gw).Extract(context.Background(), "x")

	require.True(t, outcome.Succeeded())
	assert.Equal(t, []any{"conversion", "retention"}, outcome.Fields[discovery.SlotKPI])
	assert.Equal(t, 15000.0, outcome.Fields[discovery.SlotBudget])
	assert.NotContains(t, outcome.Fields, "extra")
	assert.Nil(t, outcome.Confidence, "non-object confidence is dropped")
}

func TestExtractHonoursMaxTokensOption(t *testing.T) {
	gw := &scripted{replies: []*string{text(`{}`)}}
	outcome := New(gw, WithMaxTokens(64)).Extract(context.Background(), "x")

	require.True(t, outcome.Succeeded())
	assert.Empty(t, outcome.Fields)
	assert.Equal(t, 64, gw.requests[0].MaxTokens)
}

func TestParseObject(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    map[string]any
		wantErr bool
	}{
		{name: "strict", input: `{"pain":"a"}`, want: map[string]any{"pain": "a"}},
		{name: "prose around", input: `answer: {"pain":"a"} done`, want: map[string]any{"pain": "a"}},
		{name: "braces in strings", input: `x {"pain":"use {curly}"} y {"b":1}`, want: map[string]any{"pain": "use {curly}"}},
		{name: "nested", input: `{"confidence":{"pain":0.5}}`, want: map[string]any{"confidence": map[string]any{"pain": 0.5}}},
		{name: "array", input: `["pain"]`, wantErr: true},
		{name: "null", input: `null`, wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
		{name: "no braces", input: "nothing here", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseObject(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildPromptEmbedsMessageVerbatim(t *testing.T) {
	msg := `quote " and {braces}`
	prompt := buildPrompt(primaryPromptTemplate, msg)
	assert.Contains(t, prompt, `Message: "quote " and {braces}"`)
	assert.Contains(t, prompt, `"confidence": {"pain":0.0`)
}
