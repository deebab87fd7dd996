package models

import "testing"

func TestFindModel(t *testing.T) {
	m := FindModel("hey_jarvis")
	if m == nil {
		t.Fatal("hey_jarvis should exist in the registry")
	}
	if m.Phrase != "hey jarvis" {
		t.Fatalf("phrase = %q, want %q", m.Phrase, "hey jarvis")
	}
	if len(m.Assets) == 0 {
		t.Fatal("model has no assets")
	}

	if FindModel("no-such-model") != nil {
		t.Fatal("unknown model should return nil")
	}
}

func TestRegistryEntriesComplete(t *testing.T) {
	for _, m := range AvailableModels {
		if m.Name == "" || m.Phrase == "" {
			t.Fatalf("incomplete model entry: %+v", m)
		}
		if len(m.Assets) == 0 {
			t.Fatalf("model %s has no assets", m.Name)
		}
		for _, a := range m.Assets {
			if a.Name == "" || a.URL == "" {
				t.Fatalf("model %s has incomplete asset: %+v", m.Name, a)
			}
		}
	}
}

func TestDefaultModelInRegistry(t *testing.T) {
	if FindModel(DefaultModelName) == nil {
		t.Fatalf("default model %q missing from registry", DefaultModelName)
	}
}

func TestSetDefaultModelRejectsUnknown(t *testing.T) {
	if err := SetDefaultModel("no-such-model"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}
