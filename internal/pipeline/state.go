package pipeline

// State is a point in the life of a run.
type State string

const (
	StateInit             State = "init"
	StateProbeFailed      State = "probe_failed"
	StateProbed           State = "probed"
	StateExtractFailed    State = "extract_failed"
	StateExtracted        State = "extracted"
	StateConverted        State = "converted"
	StateAudioUnavailable State = "audio_unavailable"
	StateAudioReady       State = "audio_ready"
	StateRenderFailed     State = "render_failed"
	StateRendered         State = "rendered"
	StateCombined         State = "combined"
	StateCombineFailed    State = "combine_failed"
	StateCleanedUp        State = "cleaned_up"
)

// Terminal reports whether no stage follows s other than cleanup.
func (s State) Terminal() bool {
	switch s {
	case StateProbeFailed, StateExtractFailed, StateRenderFailed, StateCombined, StateCombineFailed, StateCleanedUp:
		return true
	default:
		return false
	}
}

// AudioMode describes the soundtrack that ended up in the output.
type AudioMode string

const (
	AudioCompressed AudioMode = "compressed"
	AudioRaw        AudioMode = "raw"
	AudioNone       AudioMode = "none"
	AudioDisabled   AudioMode = "disabled"
)
