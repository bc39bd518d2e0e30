package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/steveyegge/rdscout/internal/config"
	"github.com/steveyegge/rdscout/internal/entities"
	"github.com/steveyegge/rdscout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	response   string
	err        error
	calls      int32
	lastPrompt string
	lastModel  string
}

func (f *fakeCompleter) Complete(_ context.Context, model string, _ int, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.lastPrompt = prompt
	f.lastModel = model
	return f.response, f.err
}

type fakeEmbeddingAPI struct {
	vector []float32
	err    error
	inputs []string
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	req := conv.Convert()
	if in, ok := req.Input.([]string); ok {
		f.inputs = append(f.inputs, in...)
	}
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	return openai.EmbeddingResponse{Data: []openai.Embedding{{Embedding: f.vector}}}, nil
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	api := &fakeEmbeddingAPI{vector: []float32{0.1, 0.2, 0.3}}
	e := newOpenAIEmbedder(api, config.DefaultConfig().Embedding, fastRetry(), nil)

	vec, err := e.Embed(context.Background(), "  Beacon prototype notes  ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, []string{"Beacon prototype notes"}, api.inputs)
	assert.Equal(t, openai.SmallEmbedding3, e.model)
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	e := newOpenAIEmbedder(&fakeEmbeddingAPI{}, config.DefaultConfig().Embedding, fastRetry(), nil)
	_, err := e.Embed(context.Background(), "   ")
	assert.Error(t, err)

	_, err = e.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vectors")

	auth := &fakeEmbeddingAPI{err: &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}}
	e = newOpenAIEmbedder(auth, config.DefaultConfig().Embedding, fastRetry(), nil)
	_, err = e.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Len(t, auth.inputs, 1)
}

func TestLLMRecognizer_Recognize(t *testing.T) {
	text := "Maria Lopez from Acme Robotics reviewed the prototype on March 3, 2024."
	fc := &fakeCompleter{response: "```json\n" + `{"entities": [
		{"label": "PERSON", "text": "Maria Lopez"},
		{"label": "organization", "text": "Acme Robotics"},
		{"label": "DATE", "text": "March 3, 2024"},
		{"label": "PERSON", "text": "Nobody Mentioned"},
		{"label": "LOCATION", "text": "prototype"}
	]}` + "\n```"}
	r := NewLLMRecognizer(fc, "", fastRetry(), nil)

	spans, err := r.Recognize(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 3)
	assert.Equal(t, entities.Span{Label: entities.LabelPerson, Text: "Maria Lopez", Start: 0, End: 11}, spans[0])
	assert.Equal(t, entities.LabelOrg, spans[1].Label)
	assert.Equal(t, "Acme Robotics", text[spans[1].Start:spans[1].End])
	assert.Equal(t, entities.LabelDate, spans[2].Label)
	assert.Equal(t, ModelHaiku, fc.lastModel)
	assert.Contains(t, fc.lastPrompt, text)
}

func TestLLMRecognizer_FailureFeedsExtractorFallback(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("401 invalid x-api-key")}
	ex := entities.NewExtractor(NewLLMRecognizer(fc, "", fastRetry(), nil))

	out := ex.Extract(context.Background(), "Project BEACON kicked off with Dr. Alan Smith on 2024-01-15.")
	assert.True(t, out.Degraded)
	assert.Contains(t, out.Entities.ProjectNames, "BEACON")
	assert.Equal(t, int32(1), fc.calls)
}

func TestNarrativeGenerator_Generate(t *testing.T) {
	fc := &fakeCompleter{response: "  The team did not know whether the cache would fit [1].  "}
	g := NewNarrativeGenerator(fc, config.DefaultConfig().Narrative, fastRetry(), nil)

	refs := []types.EvidenceRef{{DocumentID: "doc-1", Offset: 10, Length: 7, Excerpt: "It was unclear whether the cache would fit."}}
	prose, err := g.Generate(context.Background(), "Beacon", types.SlotUncertainty, refs)
	require.NoError(t, err)
	assert.Equal(t, "The team did not know whether the cache would fit [1].", prose)
	assert.Contains(t, fc.lastPrompt, "[1] doc-1@10: It was unclear")
	assert.Contains(t, fc.lastPrompt, "technical uncertainty")
	assert.Equal(t, ModelSonnet, fc.lastModel)
}

func TestNarrativeGenerator_RejectsEmptyInput(t *testing.T) {
	fc := &fakeCompleter{response: "unused"}
	g := NewNarrativeGenerator(fc, config.NarrativeConfig{}, fastRetry(), nil)

	_, err := g.Generate(context.Background(), "Beacon", types.SlotOutcome, nil)
	assert.Error(t, err)
	_, err = g.Generate(context.Background(), "Beacon", types.EvidenceSlot("budget"), []types.EvidenceRef{{DocumentID: "d"}})
	assert.Error(t, err)
	assert.Equal(t, int32(0), fc.calls)
}
