package game

import "time"

// Sound identifies a one-shot effect.
type Sound int

const (
	SoundHit Sound = iota
	SoundAchievement
	SoundGameOver
)

func (s Sound) String() string {
	switch s {
	case SoundHit:
		return "hit"
	case SoundAchievement:
		return "achievement"
	case SoundGameOver:
		return "gameover"
	default:
		return "unknown"
	}
}

// Audio plays effects and the ambient loop. Implementations must not block.
type Audio interface {
	Play(Sound)
	StartAmbient()
	PauseAmbient()
	SetMuted(bool)
}

// NopAudio discards every call.
type NopAudio struct{}

func (NopAudio) Play(Sound)    {}
func (NopAudio) StartAmbient() {}
func (NopAudio) PauseAmbient() {}
func (NopAudio) SetMuted(bool) {}

// HighScoreEntry is the persisted summary of one session.
type HighScoreEntry struct {
	Difficulty    string `json:"difficulty"`
	Score         int    `json:"score"`
	AvgReactionMs int    `json:"avgReactionTime"`
}

// Result is everything known about a finished session.
type Result struct {
	Entry         HighScoreEntry
	ReactionTimes []int
	TimePlayed    time.Duration
	Completed     bool // false when the session was stopped early
	EndedAt       time.Time
}

// Recorder receives finished sessions. Record is called without the engine
// lock held; slow implementations should hand off to a goroutine.
type Recorder interface {
	Record(Result)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Result)

func (f RecorderFunc) Record(r Result) { f(r) }

// MultiRecorder fans a result out to every non-nil recorder in order.
func MultiRecorder(rs ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiRecorder []Recorder

func (m multiRecorder) Record(r Result) {
	for _, rec := range m {
		rec.Record(r)
	}
}

// AreaFunc reports the play-area size in pixels. ok is false when the
// presenter has not measured it yet.
type AreaFunc func() (width, height int, ok bool)

// FixedArea returns an AreaFunc with constant dimensions.
func FixedArea(width, height int) AreaFunc {
	return func() (int, int, bool) { return width, height, width > 0 && height > 0 }
}
