package model

import (
	"encoding/json"
	"testing"
)

func TestUploadStatusStrings(t *testing.T) {
	expected := []string{"pending", "uploading", "success", "error"}

	for i, status := range AllUploadStatuses {
		if status.String() != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], status.String())
		}
		parsed, err := ParseUploadStatus(expected[i])
		if err != nil || parsed != status {
			t.Errorf("ParseUploadStatus(%q): got %v, %v", expected[i], parsed, err)
		}
	}

	if _, err := ParseUploadStatus("done"); err == nil {
		t.Error("Expected error for unknown status")
	}
	if UploadStatus(42).Valid() {
		t.Error("Expected out-of-range status to be invalid")
	}
}

func TestUploadStatusTerminal(t *testing.T) {
	if UploadPending.Terminal() || UploadUploading.Terminal() {
		t.Error("Expected pending and uploading to be non-terminal")
	}
	if !UploadSuccess.Terminal() || !UploadError.Terminal() {
		t.Error("Expected success and error to be terminal")
	}
}

func TestUploadRecordJSON(t *testing.T) {
	rec := UploadRecord{ID: "u1", Name: "a.pdf", Size: 10, Status: UploadSuccess}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if string(data) != `{"id":"u1","name":"a.pdf","size":10,"status":"success"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	if _, err := json.Marshal(UploadRecord{Status: UploadStatus(9)}); err == nil {
		t.Error("Expected marshal error for invalid status")
	}

	var back UploadRecord
	if err := json.Unmarshal([]byte(`{"status":"bogus"}`), &back); err == nil {
		t.Error("Expected unmarshal error for unknown status")
	}
}

func TestUploadSnapshotJSONKeys(t *testing.T) {
	data, _ := json.Marshal(UploadSnapshot{Uploading: true})
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if _, ok := m["uploadedFiles"]; !ok {
		t.Errorf("Expected uploadedFiles key, got %s", data)
	}
	if m["uploading"] != true {
		t.Errorf("Expected uploading true, got %v", m["uploading"])
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{-1, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{5 * 1024 * 1024 * 1024, "5 GB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3072 GB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.bytes); got != tt.want {
			t.Errorf("FormatFileSize(%d): expected %q, got %q", tt.bytes, tt.want, got)
		}
	}
}
