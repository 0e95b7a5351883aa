package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

// tone is a sine sweep from freq to endFreq with an exponential decay.
type tone struct {
	sr      beep.SampleRate
	freq    float64
	endFreq float64
	amp     float64
	total   int
	pos     int
	phase   float64
}

func newTone(sr beep.SampleRate, freq, endFreq, amp float64, d time.Duration) *tone {
	return &tone{sr: sr, freq: freq, endFreq: endFreq, amp: amp, total: sr.N(d)}
}

func (g *tone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if g.pos >= g.total {
			return i, i > 0
		}
		progress := float64(g.pos) / float64(g.total)
		f := g.freq + (g.endFreq-g.freq)*progress
		g.phase += 2 * math.Pi * f / float64(g.sr)

		// 5ms attack avoids a click at the start.
		attack := math.Min(float64(g.pos)/float64(g.sr.N(5*time.Millisecond)), 1)
		v := g.amp * attack * math.Exp(-4*progress) * math.Sin(g.phase)

		samples[i][0] = v
		samples[i][1] = v
		g.pos++
	}
	return len(samples), true
}

func (g *tone) Err() error { return nil }

// pad is an endless soft two-note drone with a slow swell.
type pad struct {
	sr  beep.SampleRate
	pos int
}

func newPad(sr beep.SampleRate) *pad {
	return &pad{sr: sr}
}

func (g *pad) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		swell := 0.5 + 0.5*math.Sin(2*math.Pi*0.125*t)
		v := 0.04 * swell * (math.Sin(2*math.Pi*110*t) + 0.6*math.Sin(2*math.Pi*164.81*t))

		samples[i][0] = v
		samples[i][1] = v
		g.pos++
	}
	return len(samples), true
}

func (g *pad) Err() error { return nil }
