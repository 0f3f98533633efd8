package synth

import (
	"math"
	"sort"
)

type eventKind int

const (
	setValue eventKind = iota
	linearRamp
	expRamp
	setTarget
)

type paramEvent struct {
	kind  eventKind
	time  float64
	value float64
	tau   float64
}

// Param is an automation timeline for a single value, modelled on Web Audio
// AudioParam. Events are kept in time order; an event at the same time as an
// earlier one is applied after it.
//
// A Param must not be modified once its Source has been scheduled. ValueAt is
// safe for concurrent use after that point.
type Param struct {
	initial float64
	events  []paramEvent
}

// NewParam returns a Param holding v until the first event.
func NewParam(v float64) *Param {
	return &Param{initial: v}
}

// SetValueAtTime jumps to v at time t.
func (p *Param) SetValueAtTime(v, t float64) *Param {
	return p.insert(paramEvent{kind: setValue, time: t, value: v})
}

// LinearRampToValueAtTime ramps linearly from the previous event to v,
// arriving at time t.
func (p *Param) LinearRampToValueAtTime(v, t float64) *Param {
	return p.insert(paramEvent{kind: linearRamp, time: t, value: v})
}

// ExponentialRampToValueAtTime ramps exponentially from the previous event to
// v, arriving at time t. The ramp holds its start value if either end is not
// strictly positive.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) *Param {
	return p.insert(paramEvent{kind: expRamp, time: t, value: v})
}

// SetTargetAtTime starts approaching target at time t with time constant tau
// seconds.
func (p *Param) SetTargetAtTime(target, t, tau float64) *Param {
	return p.insert(paramEvent{kind: setTarget, time: t, value: target, tau: tau})
}

func (p *Param) insert(e paramEvent) *Param {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > e.time })
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
	return p
}

// ValueAt returns the automated value at time t.
func (p *Param) ValueAt(t float64) float64 {
	v, vt := p.initial, 0.0
	var target *paramEvent

	current := func(x float64) float64 {
		if target == nil || target.tau <= 0 {
			if target != nil {
				return target.value
			}
			return v
		}
		return target.value + (v-target.value)*math.Exp(-(x-target.time)/target.tau)
	}

	for i := range p.events {
		e := &p.events[i]
		if e.time > t {
			switch e.kind {
			case linearRamp:
				start := current(vt)
				return start + (e.value-start)*(t-vt)/(e.time-vt)
			case expRamp:
				start := current(vt)
				if start <= 0 || e.value <= 0 {
					return start
				}
				return start * math.Pow(e.value/start, (t-vt)/(e.time-vt))
			}
			return current(t)
		}

		switch e.kind {
		case setTarget:
			v = current(e.time)
			target = e
		default:
			v = e.value
			target = nil
		}
		vt = e.time
	}
	return current(t)
}

// End returns the time of the last event, or 0 if there is none.
func (p *Param) End() float64 {
	if len(p.events) == 0 {
		return 0
	}
	return p.events[len(p.events)-1].time
}
