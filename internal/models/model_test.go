package models

import (
	"encoding/json"
	"testing"
)

// TestModelRecord_IsHidden verifies that absence at any level of info.meta.hidden
// reads as not hidden and only an explicit true hides the record.
func TestModelRecord_IsHidden(t *testing.T) {
	tests := []struct {
		name string
		rec  ModelRecord
		want bool
	}{
		{"no info", ModelRecord{ID: "a"}, false},
		{"info without meta", ModelRecord{ID: "a", Info: &ModelInfo{}}, false},
		{"meta without hidden", ModelRecord{ID: "a", Info: &ModelInfo{Meta: &ModelMeta{}}}, false},
		{"hidden false", ModelRecord{ID: "a", Info: &ModelInfo{Meta: &ModelMeta{Hidden: Bool(false)}}}, false},
		{"hidden true", ModelRecord{ID: "a", Info: &ModelInfo{Meta: &ModelMeta{Hidden: Bool(true)}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.IsHidden(); got != tt.want {
				t.Errorf("IsHidden() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelRecord_IsArena(t *testing.T) {
	tests := []struct {
		name string
		rec  ModelRecord
		want bool
	}{
		{"plain", ModelRecord{OwnedBy: "ollama"}, false},
		{"owner arena", ModelRecord{OwnedBy: "arena"}, true},
		{"owner Arena is not arena", ModelRecord{OwnedBy: "Arena"}, false},
		{"flag true", ModelRecord{Arena: Bool(true)}, true},
		{"flag false", ModelRecord{OwnedBy: "openai", Arena: Bool(false)}, false},
		{"flag false but owner arena", ModelRecord{OwnedBy: "arena", Arena: Bool(false)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.IsArena(); got != tt.want {
				t.Errorf("IsArena() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestModelRecord_DecodeOptionalFields verifies that upstream JSON with missing
// optional fields decodes into nil pointers rather than false values.
func TestModelRecord_DecodeOptionalFields(t *testing.T) {
	raw := `[
		{"id":"model1","name":"Regular Model 1","owned_by":"ollama"},
		{"id":"model3","name":"Model with arena flag","arena":true},
		{"id":"model4","name":"Hidden Model","info":{"meta":{"hidden":true}}}
	]`
	var recs []ModelRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if recs[0].Arena != nil || recs[0].Info != nil {
		t.Errorf("record 0 optional fields = %+v, want nil", recs[0])
	}
	if !recs[1].IsArenaFlagged() {
		t.Error("record 1 IsArenaFlagged() = false, want true")
	}
	if !recs[2].IsHidden() {
		t.Error("record 2 IsHidden() = false, want true")
	}
}

func TestModelRecord_DisplayName(t *testing.T) {
	if got := (ModelRecord{ID: "llama3"}).DisplayName(); got != "llama3" {
		t.Errorf("DisplayName() = %q, want %q", got, "llama3")
	}
	if got := (ModelRecord{ID: "llama3", Name: "Llama 3"}).DisplayName(); got != "Llama 3" {
		t.Errorf("DisplayName() = %q, want %q", got, "Llama 3")
	}
}
