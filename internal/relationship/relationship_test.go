package relationship

import (
	"testing"

	"github.com/dgallion1/storysignals/internal/normalize"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Relationship
	}{
		{"empty", "", Myself},
		{"plain self", "My name is John Smith and I need $2,000 for rent", Myself},
		{"explicit self", "I am raising this for myself after losing my job", Myself},
		{"friend fundraiser", "I'm raising money for my friend who lost her home", Other},
		{"on behalf of neighbor", "Posting on behalf of our neighbor, Mrs. Alvarez", Other},
		{"pet surgery", "Our dog needs surgery after being hit by a car", Other},
		{"child", "My daughter needs braces and we can't afford them", FamilyMember},
		{"spouse", "My husband was injured at work", FamilyMember},
		{"bare relation noun", "Grandmother fell and broke her hip", FamilyMember},
		{"nothing matched", "Rent is due and the car broke down", Myself},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.text); got != tc.want {
				t.Errorf("Classify(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestClassify_OrderPrefersThirdPartyOverFamily(t *testing.T) {
	// A friend's family is still someone else's fundraiser.
	got, rule := ClassifyWithRule("We are raising money for my friend whose son is sick")
	if got != Other || rule != "third_party_fundraising" {
		t.Fatalf("got %q via %q", got, rule)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "My brother and his cat need help"
	first := Classify(text)
	for range 10 {
		if got := Classify(text); got != first {
			t.Fatalf("Classify not deterministic: %q then %q", first, got)
		}
	}
}

func TestClassifyEntry_ReadsFoldedView(t *testing.T) {
	// Rules only see Lower; Trimmed is never re-folded.
	in := normalize.Entry{Trimmed: "MY BROTHER NEEDS HELP", Lower: "i need help for rent!"}
	if got, rule := ClassifyEntry(in); got != Myself || rule != "self_reference" {
		t.Fatalf("ClassifyEntry = %q/%q, want myself/self_reference", got, rule)
	}
	got, rule := ClassifyEntry(normalize.Of("MY BROTHER NEEDS HELP"))
	if got != FamilyMember || rule != "family_relation" {
		t.Fatalf("ClassifyEntry = %q/%q, want family_member/family_relation", got, rule)
	}
}

func TestRelationshipValid(t *testing.T) {
	for _, r := range []Relationship{Myself, FamilyMember, Other} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Relationship("cousin").Valid() {
		t.Error("unknown relationship reported valid")
	}
}
