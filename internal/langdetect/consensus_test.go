package langdetect

import "testing"

func TestConsensus_StrongAgreementWins(t *testing.T) {
	results := []Result{
		{Language: "es", Confidence: 0.8, Method: MethodEngine},
		{Language: "es", Confidence: 0.5, Method: MethodPhonetic},
		{Language: "es", Confidence: 0.85, Method: MethodLinguistic},
		{Language: "en", Confidence: 0.6, Method: MethodEngine},
	}

	verdict, ok := Consensus(results, DefaultConsensusThreshold)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if verdict.Language != "es" {
		t.Errorf("language = %q, want es", verdict.Language)
	}
	if verdict.Method != MethodConsensus {
		t.Errorf("method = %q, want consensus", verdict.Method)
	}
	// avg .7167, max .85, 3 methods, strong linguistic boost:
	// .3*.7167 + .3*.85 + .1*(3/5) + .3 = .83
	if verdict.Confidence < 0.80 || verdict.Confidence > 0.86 {
		t.Errorf("confidence = %v, want ~0.83", verdict.Confidence)
	}
}

func TestConsensus_SingleWeakSignalRejected(t *testing.T) {
	// One engine result at 0.4 scores .12 + .12 + .02 = .26.
	results := []Result{{Language: "en", Confidence: 0.4, Method: MethodEngine}}
	if _, ok := Consensus(results, DefaultConsensusThreshold); ok {
		t.Error("expected no verdict below threshold")
	}
}

func TestConsensus_WeakLinguisticBoost(t *testing.T) {
	// Linguistic evidence at exactly the strong threshold gets the weak
	// boost: .3*.8 + .3*.8 + .02 + .15 = .65.
	results := []Result{{Language: "fr", Confidence: 0.8, Method: MethodLinguistic}}
	verdict, ok := Consensus(results, DefaultConsensusThreshold)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if verdict.Confidence < 0.64 || verdict.Confidence > 0.66 {
		t.Errorf("confidence = %v, want ~0.65", verdict.Confidence)
	}
}

func TestConsensus_DeterministicTieBreak(t *testing.T) {
	// Identical scores resolve by language code, repeatably.
	results := []Result{
		{Language: "pt", Confidence: 0.9, Method: MethodEngine},
		{Language: "it", Confidence: 0.9, Method: MethodEngine},
	}
	for i := 0; i < 20; i++ {
		verdict, ok := Consensus(results, DefaultConsensusThreshold)
		if !ok {
			t.Fatal("expected a verdict")
		}
		if verdict.Language != "it" {
			t.Fatalf("tie-break picked %q, want it", verdict.Language)
		}
	}
}

func TestConsensus_Empty(t *testing.T) {
	if _, ok := Consensus(nil, DefaultConsensusThreshold); ok {
		t.Error("expected no verdict from empty input")
	}
}
