package names

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/storysignals/internal/normalize"
)

func TestExtract_Introductions(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		pattern PatternID
		minConf float64
	}{
		{"my name is", "My name is John Smith and I need $2,000 for rent", "John Smith", PatternMyNameIs, 0.8},
		{"titled", "Hello, I'm Dr. Sarah Jones and I need help", "Sarah Jones", PatternTitled, 0.8},
		{"legal", "The undersigned, Robert J. Miller, requests assistance", "Robert J. Miller", PatternLegal, 0.8},
		{"code switched", "Hola, me llamo Maria Lopez y necesito ayuda", "Maria Lopez", PatternCodeSwitched, 0.8},
		{"speaking", "This is Marcus calling about my rent", "Marcus", PatternSpeaking, 0.8},
		{"signature", "Thank you for reading.\nSincerely,\nAngela Brooks", "Angela Brooks", PatternSignature, 0.8},
		{"call me", "Everyone calls me Tasha and I run the corner store", "Tasha", PatternCallMe, 0.8},
		{"i am", "Hi there, I am Devon Price and my car broke down", "Devon Price", PatternIAm, 0.8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Extract(tc.text)
			assert.Equal(t, tc.want, res.Value)
			assert.Equal(t, tc.pattern, res.Pattern)
			assert.GreaterOrEqual(t, res.Confidence, tc.minConf)
			assert.LessOrEqual(t, res.Confidence, 1.0)
			assert.Empty(t, res.Fallback)
		})
	}
}

func TestExtract_RejectsFalsePositives(t *testing.T) {
	for _, text := range []string{
		"They call me Critical because my situation is dire",
		"I'm 35 years old and need help",
		"I'm Sorry to bother anyone reading this",
		"This is an emergency, I need $5,000 immediately",
	} {
		res := Extract(text)
		assert.Empty(t, res.Value, "text %q", text)
		assert.Zero(t, res.Confidence, "text %q", text)
	}
}

func TestExtract_CorrectionMarkerLowersConfidence(t *testing.T) {
	res := Extract("My name is Jon, I mean it, and I need help")
	require.Equal(t, "Jon", res.Value)
	assert.InDelta(t, 0.55, res.Confidence, 1e-9)
}

func TestExtract_CapitalizedFallback(t *testing.T) {
	res := Extract("Please help Maria with her medical bills")
	assert.Equal(t, "Maria", res.Value)
	assert.Equal(t, 0.1, res.Confidence)
	assert.Equal(t, FallbackCapitalized, res.Fallback)
	assert.Equal(t, PatternCapitalized, res.Pattern)
}

func TestExtract_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "i need help with rent"} {
		res := Extract(in)
		assert.Empty(t, res.Value)
		assert.Zero(t, res.Confidence)
	}
}

func TestExtract_ChaoticSpeech(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"annotations fillers stutter", "[crying] um, uh, my my name is J-J-John Smith and I need help"},
		{"shouting", "PLEASE HELP ME MY NAME IS JOHN SMITH"},
		{"elongation", "Sooooo um, yeah, my name is John Smith"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Extract(tc.text)
			assert.Equal(t, "John Smith", res.Value)
			assert.Greater(t, res.Confidence, 0.8)
		})
	}
}

func TestExtract_PathologicalPrefix(t *testing.T) {
	text := strings.Repeat("a", 10_000) + " My name is John Smith and I need $2,000"
	start := time.Now()
	res := Extract(text)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, "John Smith", res.Value)
	assert.Greater(t, res.Confidence, 0.8)
}

func TestExtract_ScanCap(t *testing.T) {
	e := New(Options{MaxScan: 40})
	res := e.Extract("I have been waiting a long time for this. My name is John Smith")
	assert.NotEqual(t, "John Smith", res.Value)
}

func TestExtract_Idempotent(t *testing.T) {
	text := "Hello, I'm Dr. Sarah Jones and I need help"
	assert.Equal(t, Extract(text), Extract(text))
}

func TestCandidates_OrderedBySpecificity(t *testing.T) {
	e := New(DefaultOptions())
	got := e.Candidates("My name is Sarah Jones. Sincerely, Sarah Jones")
	require.Len(t, got, 2)
	assert.Equal(t, PatternMyNameIs, got[0].Pattern)
	assert.Equal(t, PatternSignature, got[1].Pattern)
}

func TestCandidates_FirstIsExtracted(t *testing.T) {
	e := New(DefaultOptions())
	for _, text := range []string{
		"My name is Sarah Jones. Sincerely, Sarah Jones",
		"Hi, my name is Angela. My name is Angela Brooks.",
		"Hello, I'm Dr. Sarah Jones and I need help",
	} {
		got := e.Candidates(text)
		require.NotEmpty(t, got, text)
		assert.Equal(t, e.Extract(text), got[0], text)
	}
}

func TestExtractEntry_MatchesExtract(t *testing.T) {
	e := New(DefaultOptions())
	for _, text := range []string{
		"  My name is John Smith and I need $2,000  ",
		"um um um my name is uh [crying] David Chen",
		"",
	} {
		assert.Equal(t, e.Extract(text), e.ExtractEntry(normalize.Of(text)), text)
	}
}

func TestValidate(t *testing.T) {
	lower := "i'm from jefferson county and we need help"
	v := Validate(Candidate{Text: "Jefferson", Offset: 9, Pattern: PatternIAm}, lower)
	assert.False(t, v.Valid)

	lower = "my name is angela brooks"
	v = Validate(Candidate{Text: "Angela Brooks", Offset: 11, Pattern: PatternMyNameIs}, lower)
	assert.True(t, v.Valid)
	assert.Equal(t, "Angela Brooks", v.Name)
	assert.Equal(t, 1.0, v.Confidence)

	v = Validate(Candidate{Text: "Dr", Offset: 4, Pattern: PatternIAm}, "i'm dr. sarah jones")
	assert.False(t, v.Valid)
}

func TestValidate_CandidateAtTextEdge(t *testing.T) {
	lower := "thank you, angela"
	v := Validate(Candidate{Text: "Angela", Offset: 11, Pattern: PatternSignature}, lower)
	assert.True(t, v.Valid)

	// An offset past the scanned text must not fault.
	assert.NotPanics(t, func() {
		Validate(Candidate{Text: "Angela Brooks", Offset: 11, Pattern: PatternSignature}, lower)
	})
}

func TestStripHonorifics(t *testing.T) {
	tests := map[string]string{
		"Dr. Sarah Jones":      "Sarah Jones",
		"John Smith Jr.":       "John Smith",
		"Rev. Dr. Martin King": "Martin King",
		"Angela Brooks, PhD":   "Angela Brooks",
		"Captain Luis Ortega":  "Luis Ortega",
		"Maria":                "Maria",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripHonorifics(in), in)
	}
}

func TestDegraded_TagsInternalFault(t *testing.T) {
	e := New(DefaultOptions())
	res := e.degraded("please help Maria")
	assert.Equal(t, "Maria", res.Value)
	assert.Equal(t, FallbackInternalFault, res.Fallback)

	res = e.degraded("nothing here")
	assert.Empty(t, res.Value)
	assert.Equal(t, FallbackInternalFault, res.Fallback)
}
