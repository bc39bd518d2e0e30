package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	spans []Span
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ string) ([]Span, error) {
	f.calls++
	return f.spans, f.err
}

func TestExtractHeuristic(t *testing.T) {
	text := "Dr. Alice Wong met with Bob Smith from Acme Labs on March 3rd, 2024 to review " +
		"Project Beacon and BEACON-12 in [rd/beacon]. Target is Q3 2024."

	ex := NewExtractor(nil).Extract(context.Background(), text)

	assert.False(t, ex.Truncated)
	assert.False(t, ex.Degraded)
	assert.Equal(t, []string{"Dr. Alice Wong", "Bob Smith"}, ex.Entities.People)
	assert.Equal(t, []string{"Acme Labs"}, ex.Entities.Organizations)
	assert.Equal(t, []string{"2024-03-03", "Q3 2024"}, ex.Entities.Dates, "unparseable dates kept raw")
	assert.Equal(t, []string{"Beacon", "BEACON-12", "rd/beacon"}, ex.Entities.ProjectNames)
}

func TestExtractUsesPrimaryRecognizer(t *testing.T) {
	rec := &fakeRecognizer{spans: []Span{
		{Label: LabelPerson, Text: "Grace Hopper"},
		{Label: "ORGANIZATION", Text: "Navy Research"},
		{Label: LabelDate, Text: "2024-01-05"},
		{Label: "MISC", Text: "ignored"},
	}}

	ex := NewExtractor(rec).Extract(context.Background(), "Notes from the compiler review.")

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, []string{"Grace Hopper"}, ex.Entities.People)
	assert.Equal(t, []string{"Navy Research"}, ex.Entities.Organizations)
	assert.Equal(t, []string{"2024-01-05"}, ex.Entities.Dates)
}

func TestExtractDegradesWhenRecognizerFails(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("ner service down")}

	ex := NewExtractor(rec).Extract(context.Background(), "Bob Smith ran the Project Falcon benchmark.")

	assert.True(t, ex.Degraded)
	require.Error(t, ex.Err)
	assert.Equal(t, []string{"Bob Smith"}, ex.Entities.People, "heuristic fallback still finds people")
	assert.Equal(t, []string{"Falcon"}, ex.Entities.ProjectNames)
}

func TestExtractCapsAndDedupes(t *testing.T) {
	var spans []Span
	for i := 0; i < 30; i++ {
		spans = append(spans, Span{Label: LabelPerson, Text: fmt.Sprintf("Person %02d", i)})
	}
	spans = append([]Span{{Label: LabelPerson, Text: "person 00"}}, spans...)

	ex := NewExtractor(&fakeRecognizer{spans: spans}).Extract(context.Background(), "irrelevant")

	assert.Len(t, ex.Entities.People, 20)
	assert.Equal(t, "person 00", ex.Entities.People[0], "first surface form wins")
	assert.Equal(t, "Person 01", ex.Entities.People[1])
}

func TestExtractTruncation(t *testing.T) {
	text := strings.Repeat("é", 120) + " Project Zephyr"

	ex := NewExtractor(nil, WithMaxTextChars(100)).Extract(context.Background(), text)
	assert.True(t, ex.Truncated)
	assert.Empty(t, ex.Entities.ProjectNames)

	ex = NewExtractor(nil).Extract(context.Background(), text)
	assert.False(t, ex.Truncated)
	assert.Equal(t, []string{"Zephyr"}, ex.Entities.ProjectNames)
}

func TestTruncateRunesBoundary(t *testing.T) {
	out, cut := truncateRunes("héllo wörld", 4)
	assert.True(t, cut)
	assert.Equal(t, "héll", out)

	out, cut = truncateRunes("short", 10)
	assert.False(t, cut)
	assert.Equal(t, "short", out)
}

func TestTechnicalTerms(t *testing.T) {
	text := "We moved from PostgreSQL to DuckDB on the GPU cluster using gRPC and CUDA."
	assert.Equal(t, []string{"PostgreSQL", "DuckDB", "GPU", "CUDA"}, TechnicalTerms(text))
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Beacon", "BEACON"},
		{"BEACON-12", "BEACON"},
		{"beacon", "BEACON"},
		{"rd/beacon", "RD/BEACON"},
		{"Deep Sea", "DEEPSEA"},
		{"deep-sea", "DEEPSEA"},
		{"deep_sea", "DEEPSEA"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeToken(tt.in); got != tt.want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayToken(t *testing.T) {
	assert.Equal(t, "BEACON", DisplayToken("BEACON-12"))
	assert.Equal(t, "Deep Space", DisplayToken("  Deep Space "))
	assert.Equal(t, "rd/beacon", DisplayToken("rd/beacon"))
}

func TestTokenKeys(t *testing.T) {
	keys := TokenKeys([]string{"Beacon", "BEACON-7", "Falcon", "", "beacon"})
	assert.Equal(t, []string{"BEACON", "FALCON"}, keys)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-03-15", NormalizeDate("2024-03-15"))
	assert.Equal(t, "2024-03-03", NormalizeDate("March 3rd, 2024"))
	assert.Equal(t, "Q3 2024", NormalizeDate("Q3 2024"))
}
