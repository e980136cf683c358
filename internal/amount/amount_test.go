package amount

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    float64
		minConf float64
	}{
		{"need with currency", "My name is John Smith and I need $2,000 for rent", 2000, 0.7},
		{"emergency ask", "This is an emergency, I need $5,000 immediately", 5000, 0.9},
		{"need framing beats past income and debt", "I used to make $50,000 a year but now I'm $8,000 in debt. I need to raise $2,500 for rent.", 2500, 0.9},
		{"written compound", "I need two thousand three hundred forty-seven dollars for the deposit", 2347, 0.9},
		{"scientific e-notation", "I need 5e3 dollars", 5000, 0.9},
		{"scientific power notation", "I need 1.5 * 10^3 dollars", 1500, 0.9},
		{"roman numeral with scale", "I need V thousand dollars for the car", 5000, 0.9},
		{"k suffix", "I need $2k for rent", 2000, 0.9},
		{"digits then scale word", "We need 3 thousand dollars to fix the roof", 3000, 0.9},
		{"hourly wage skipped", "I make $25 an hour and need $800 for rent", 800, 0.9},
		{"debt loses to need", "I owe $3,000 but I need $1,200 for rent", 1200, 0.9},
		{"goal keyword", "My goal is 4,500 to cover tuition", 4500, 0.7},
		{"currency only", "The hospital bill came to $1,800 last Tuesday", 1800, 0.2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Extract(tc.text)
			require.NotNil(t, res.Value, "reasons: %v", res.Reasons)
			assert.InDelta(t, tc.want, *res.Value, 0.001)
			assert.GreaterOrEqual(t, res.Confidence, tc.minConf)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		})
	}
}

func TestExtract_ExplicitProvenance(t *testing.T) {
	res := Extract("I need $2,000 for rent")
	require.NotNil(t, res.Value)
	assert.Equal(t, ProvenanceExplicit, res.Provenance)
	assert.Contains(t, res.Reasons, "need_verb")
	assert.Contains(t, res.Reasons, "currency_context")
}

func TestExtract_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		res := Extract(in)
		assert.Nil(t, res.Value)
		assert.Zero(t, res.Confidence)
		assert.Equal(t, ProvenanceNone, res.Provenance)
	}
}

func TestExtract_NoNumbers(t *testing.T) {
	res := Extract("I just need some help getting back on my feet.")
	assert.Nil(t, res.Value)
	assert.Zero(t, res.Confidence)
}

func TestExtract_RejectsRates(t *testing.T) {
	for _, text := range []string{
		"I earn $60 per hour at the warehouse",
		"They pay $120 a day for the shift",
		"My grandmother is 85 years old",
	} {
		res := Extract(text)
		assert.Nil(t, res.Value, "text %q produced %v", text, res.Value)
	}
}

func TestExtract_RangeTakesLowerBound(t *testing.T) {
	res := Extract("I need somewhere between $1,000 and $5,000 for surgery")
	require.NotNil(t, res.Value)
	assert.Equal(t, 1000.0, *res.Value)
	assert.Contains(t, res.Reasons, "range_lower_bound")

	res = Extract("I need $1,000-$5,000 for surgery")
	require.NotNil(t, res.Value)
	assert.Equal(t, 1000.0, *res.Value)
}

func TestExtract_NegatedIsPenalized(t *testing.T) {
	res := Extract("I don't need $5,000")
	require.NotNil(t, res.Value)
	assert.Equal(t, 5000.0, *res.Value)
	assert.LessOrEqual(t, res.Confidence, 0.4)
	assert.Contains(t, res.Reasons, "negated")
	assert.NotEqual(t, ProvenanceExplicit, res.Provenance)
}

func TestExtract_RejectsImplausibleValues(t *testing.T) {
	assert.Nil(t, Extract("I need $0.50 for my surgery").Value)
	assert.Nil(t, Extract("I need $1,000.125 for my surgery").Value)
	assert.Nil(t, Extract("I need $12 for medicine").Value)
}

func TestExtract_ClampsToMaximum(t *testing.T) {
	res := Extract("I need $250,000 for the transplant")
	require.NotNil(t, res.Value)
	assert.Equal(t, 100_000.0, *res.Value)
	assert.Contains(t, res.Reasons, "clamped_to_maximum")
}

func TestExtract_YearIsNotAnAmount(t *testing.T) {
	res := Extract("Since 2019 things have been really hard for us")
	assert.Nil(t, res.Value)
}

func TestExtract_VagueQuantity(t *testing.T) {
	res := Extract("I need a few thousand dollars to get through the month")
	require.NotNil(t, res.Value)
	assert.Equal(t, 3000.0, *res.Value)
	assert.Equal(t, ProvenanceVague, res.Provenance)
	assert.LessOrEqual(t, res.Confidence, tierVagueCap)
}

func TestExtract_Idempotent(t *testing.T) {
	text := "I owe $3,000 but I need $1,200 for rent"
	a := Extract(text)
	b := Extract(text)
	assert.Equal(t, a, b)
}

func TestExtract_BoundsHoldAcrossInputs(t *testing.T) {
	inputs := []string{
		"I need $10 now",
		"I need $99,999,999",
		"need 50 dollars",
		"raise five hundred dollars",
		"I need 9e9 dollars",
		strings.Repeat("$1,000 ", 500),
	}
	for _, in := range inputs {
		res := Extract(in)
		if res.Value != nil {
			assert.GreaterOrEqual(t, *res.Value, 50.0)
			assert.LessOrEqual(t, *res.Value, 100_000.0)
		}
		assert.GreaterOrEqual(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestExtract_PathologicalInputIsBounded(t *testing.T) {
	text := strings.Repeat("9", 10_000) + " " + strings.Repeat("a", 10_000) + " I need $2,000"
	start := time.Now()
	res := Extract(text)
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
}

func TestEngine_CustomBounds(t *testing.T) {
	e := New(Options{Min: 500, Max: 1_000})
	assert.Nil(t, e.Extract("I need $300 for groceries").Value)

	res := e.Extract("I need $4,000 for groceries")
	require.NotNil(t, res.Value)
	assert.Equal(t, 1_000.0, *res.Value)
}

func TestEngine_DegradedScan(t *testing.T) {
	e := New(DefaultOptions())
	res := e.degraded("whatever $2,400 here")
	require.NotNil(t, res.Value)
	assert.Equal(t, 2400.0, *res.Value)
	assert.Contains(t, res.Reasons, "extraction_failed")

	res = e.degraded("nothing to see")
	assert.Nil(t, res.Value)
}

func TestExtract_NeedVerbOverridesEarlierFraming(t *testing.T) {
	for _, text := range []string{
		"I lost my job last month so I need $1,500 for rent.",
		"Since I lost my job I need $1,500 for rent.",
		"If I had savings I would not ask, but right now I need $1,500 for rent.",
	} {
		res := Extract(text)
		require.NotNil(t, res.Value, text)
		assert.Equal(t, 1500.0, *res.Value, text)
		assert.GreaterOrEqual(t, res.Confidence, 0.9, text)
		assert.NotContains(t, res.Reasons, "past_framing", text)
		assert.NotContains(t, res.Reasons, "hypothetical_framing", text)
	}
}

func TestExtract_FramingStillAppliesWithoutAsk(t *testing.T) {
	res := Extract("Last year I spent $1,500 on repairs.")
	require.NotNil(t, res.Value)
	assert.Contains(t, res.Reasons, "past_framing")
	assert.Less(t, res.Confidence, 0.5)
}
