package domain

// AccelMode selects the hardware backend used for decoding.
type AccelMode string

const (
	AccelAuto     AccelMode = "auto"
	AccelCUDA     AccelMode = "cuda"
	AccelQSV      AccelMode = "qsv"
	AccelVAAPI    AccelMode = "vaapi"
	AccelSoftware AccelMode = "software"
)

// AccelConfig carries the ffmpeg flags for a resolved acceleration mode.
// Mode is never AccelAuto here; auto is resolved before a config is built.
type AccelConfig struct {
	Mode        AccelMode
	DecodeFlags []string
}
