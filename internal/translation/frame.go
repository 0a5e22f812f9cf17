package translation

// Kind tags a Frame. The set is closed; handlers switch on it.
type Kind int

const (
	KindOther Kind = iota
	// KindFragment is one transcribed piece of speech.
	KindFragment
	// KindAudioIn is raw caller audio awaiting transcription.
	KindAudioIn
	// KindUtterance is the flushed, joined text sent to the translator.
	KindUtterance
	KindStreamStart
	KindStreamChunk
	KindStreamEnd
	// KindSpeak carries one complete sanitized translation.
	KindSpeak
	// KindAudioOut is synthesized speech for the caller.
	KindAudioOut
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindAudioIn:
		return "audio_in"
	case KindUtterance:
		return "utterance"
	case KindStreamStart:
		return "stream_start"
	case KindStreamChunk:
		return "stream_chunk"
	case KindStreamEnd:
		return "stream_end"
	case KindSpeak:
		return "speak"
	case KindAudioOut:
		return "audio_out"
	case KindError:
		return "error"
	default:
		return "other"
	}
}

// Frame is the unit passed between the session loop, the pipeline and the
// transport. Only the fields relevant to Kind are set.
type Frame struct {
	Kind Kind
	Text string

	Audio      []byte
	SampleRate int
	Channels   int

	Code string // error code for KindError
	Err  error
}

func Fragment(text string) Frame { return Frame{Kind: KindFragment, Text: text} }

func Chunk(text string) Frame { return Frame{Kind: KindStreamChunk, Text: text} }

func ErrorFrame(code string, err error) Frame {
	return Frame{Kind: KindError, Code: code, Err: err}
}
