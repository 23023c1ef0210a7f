// Package audio plays a short click for every body collision.
package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/opd-ai/physthing/pkg/event"
)

const (
	sampleRate = beep.SampleRate(48000)

	clickLength = 40 * time.Millisecond
	clickFreq   = 880.0

	// Collisions closer together than this share one click
	minClickGap = 30 * time.Millisecond

	// Impulse that plays at full volume
	fullImpulse = 200.0
)

// ClickPlayer mixes collision clicks into the speaker
type ClickPlayer struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	last        time.Time
	played      int
	now         func() time.Time
	sub         *event.Subscription
}

// NewClickPlayer creates a player. Nothing is heard until Initialize.
func NewClickPlayer() *ClickPlayer {
	return &ClickPlayer{
		mixer: &beep.Mixer{},
		now:   time.Now,
	}
}

// Initialize opens the speaker
func (p *ClickPlayer) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Attach plays a click for every collision published on bus
func (p *ClickPlayer) Attach(bus *event.Bus) {
	sub := bus.Subscribe(event.BodiesCollided, func(e event.Event) {
		if c, ok := e.(*event.CollisionEvent); ok {
			p.Play(c.Impulse)
		}
	})
	p.mu.Lock()
	p.sub = sub
	p.mu.Unlock()
}

// Play queues a click scaled by impulse. It reports whether a click was
// queued; bursts inside minClickGap are merged.
func (p *ClickPlayer) Play(impulse float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.last.IsZero() && now.Sub(p.last) < minClickGap {
		return false
	}
	p.last = now
	p.played++

	if !p.initialized {
		return true
	}
	volume := math.Min(1, math.Abs(impulse)/fullImpulse)
	speaker.Lock()
	p.mixer.Add(beep.Take(sampleRate.N(clickLength), NewClickGenerator(sampleRate, clickFreq, volume)))
	speaker.Unlock()
	return true
}

// Played returns the number of queued clicks
func (p *ClickPlayer) Played() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

// Close detaches from the bus and stops the speaker
func (p *ClickPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sub != nil {
		p.sub.Cancel()
		p.sub = nil
	}
	if !p.initialized {
		return
	}
	speaker.Clear()
	speaker.Close()
	p.initialized = false
}

// ClickGenerator produces an exponentially decaying sine
type ClickGenerator struct {
	sr     beep.SampleRate
	freq   float64
	volume float64
	pos    int
}

// NewClickGenerator creates a click sound generator
func NewClickGenerator(sr beep.SampleRate, freq, volume float64) *ClickGenerator {
	return &ClickGenerator{
		sr:     sr,
		freq:   freq,
		volume: volume,
	}
}

func (g *ClickGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		sample := g.volume * math.Exp(-t*80) * math.Sin(2*math.Pi*g.freq*t)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *ClickGenerator) Err() error {
	return nil
}
