package model

import (
	"fmt"
	"math"
	"strconv"
)

// UploadStatus is the state of one simulated upload.
// pending -> uploading -> {success | error}
type UploadStatus int

const (
	UploadPending UploadStatus = iota
	UploadUploading
	UploadSuccess
	UploadError
)

// AllUploadStatuses lists every status in lifecycle order.
var AllUploadStatuses = []UploadStatus{UploadPending, UploadUploading, UploadSuccess, UploadError}

var uploadStatusNames = map[UploadStatus]string{
	UploadPending:   "pending",
	UploadUploading: "uploading",
	UploadSuccess:   "success",
	UploadError:     "error",
}

func (s UploadStatus) String() string {
	if name, ok := uploadStatusNames[s]; ok {
		return name
	}
	return "UploadStatus(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the declared statuses.
func (s UploadStatus) Valid() bool {
	_, ok := uploadStatusNames[s]
	return ok
}

// Terminal reports whether no further transition can happen.
func (s UploadStatus) Terminal() bool {
	return s == UploadSuccess || s == UploadError
}

// ParseUploadStatus is the inverse of String.
func ParseUploadStatus(name string) (UploadStatus, error) {
	for s, n := range uploadStatusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown upload status %q", name)
}

func (s UploadStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

func (s *UploadStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseUploadStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// FileCandidate is one file offered to the upload pipeline
type FileCandidate struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// UploadRecord tracks one upload attempt
type UploadRecord struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Size   int64        `json:"size"`
	Status UploadStatus `json:"status"`
}

// UploadSnapshot is the read-only view handed to the upload dialog
type UploadSnapshot struct {
	Uploading bool           `json:"uploading"`
	Files     []UploadRecord `json:"uploadedFiles"`
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with 1024-based units and at most two decimals.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	v, i := float64(bytes), 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}
