package service

import (
	"sync/atomic"
	"time"
)

// State - общее состояние процесса для health-эндпоинтов.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastTickUnix atomic.Int64 // unix seconds
	ticks        atomic.Int64
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// TouchTick вызывается сканером после каждого планового тика.
func (s *State) TouchTick(t time.Time) {
	s.lastTickUnix.Store(t.Unix())
	s.ticks.Add(1)
}

func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Ticks() int64 { return s.ticks.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

// Probes - живые показатели, которые State сам не хранит.
type Probes struct {
	ActiveSubscriptions func() int
	StreamConnected     func() bool
}

type Report struct {
	Ready               bool  `json:"ready"`
	UptimeSec           int64 `json:"uptimeSec"`
	LastTickUnix        int64 `json:"lastTickUnix"`
	Ticks               int64 `json:"ticks"`
	ActiveSubscriptions int   `json:"activeSubscriptions"`
	StreamConnected     bool  `json:"streamConnected"`
}

func (s *State) Report(p Probes) Report {
	r := Report{
		Ready:     s.Ready(),
		UptimeSec: int64(s.Uptime().Seconds()),
		Ticks:     s.Ticks(),
	}
	if t := s.LastTick(); !t.IsZero() {
		r.LastTickUnix = t.Unix()
	}
	if p.ActiveSubscriptions != nil {
		r.ActiveSubscriptions = p.ActiveSubscriptions()
	}
	if p.StreamConnected != nil {
		r.StreamConnected = p.StreamConnected()
	}
	return r
}
