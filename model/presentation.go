package model

import "math"

// Tone is the colour family a badge renders with.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneGood    Tone = "green"
	ToneWarn    Tone = "yellow"
	ToneBad     Tone = "red"
)

type uploadPresentation struct {
	icon  string
	label string
	tone  Tone
}

// Every UploadStatus has an entry; model tests enforce it.
var uploadPresentations = map[UploadStatus]uploadPresentation{
	UploadPending:   {icon: "📄", label: "Pending", tone: ToneNeutral},
	UploadUploading: {icon: "⏳", label: "Uploading...", tone: ToneInfo},
	UploadSuccess:   {icon: "✅", label: "Upload successful", tone: ToneGood},
	UploadError:     {icon: "❌", label: "Upload failed", tone: ToneBad},
}

func (s UploadStatus) Icon() string  { return uploadPresentations[s].icon }
func (s UploadStatus) Label() string { return uploadPresentations[s].label }
func (s UploadStatus) Tone() Tone    { return uploadPresentations[s].tone }

// Tone maps a risk level to its badge colour. Unknown fixture values are neutral.
func (r RiskLevel) Tone() Tone {
	switch r {
	case RiskHigh:
		return ToneBad
	case RiskMedium:
		return ToneWarn
	case RiskLow:
		return ToneGood
	}
	return ToneNeutral
}

func (s ContractStatus) Tone() Tone {
	switch s {
	case StatusActive:
		return ToneGood
	case StatusExpired:
		return ToneBad
	case StatusRenewalDue:
		return ToneWarn
	}
	return ToneNeutral
}

// ConfidenceTone bands a clause confidence score.
func ConfidenceTone(confidence float64) Tone {
	switch {
	case confidence >= 0.8:
		return ToneGood
	case confidence >= 0.6:
		return ToneWarn
	default:
		return ToneBad
	}
}

// Percent converts a [0,1] score to a rounded whole percentage.
func Percent(score float64) int {
	return int(math.Round(score * 100))
}
