// Package routing picks a guide persona and reflection protocol for a check-in.
package routing

import (
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
)

// Rule names, in evaluation order.
const (
	RuleCrisis   = "crisis"
	RuleEvening  = "evening_anxious"
	RuleSad      = "sad"
	RuleAngry    = "angry"
	RuleLowMood  = "low_mood"
	RuleHighMood = "high_mood"
	RuleDefault  = "default"
)

// Router is a pure function of (mood, emotions, hour) over a registry.
type Router struct {
	reg *catalog.Registry
}

func NewRouter(reg *catalog.Registry) *Router {
	return &Router{reg: reg}
}

// IsEvening reports whether hour (0-23) falls in the evening window.
func IsEvening(hour int) bool {
	return hour >= 20 || hour <= 6
}

// Route evaluates the rules in fixed order; the first match wins.
func (r *Router) Route(mood int, emotions []string, hour int) domain.Decision {
	tags := domain.NormalizeEmotions(emotions)

	switch {
	case r.hasTag(tags, r.reg.HighRiskTag()) || mood <= 2:
		d := r.decide(RuleCrisis, domain.PersonaAtlas, domain.ProtocolValuesCheck)
		d.Priority = domain.PriorityHigh
		d.Crisis = true
		return d
	case IsEvening(hour) && r.reg.InGroup(catalog.GroupAnxious, tags):
		return r.decide(RuleEvening, domain.PersonaWren, domain.ProtocolGrounding)
	case r.reg.InGroup(catalog.GroupSad, tags):
		return r.decide(RuleSad, domain.PersonaSol, domain.ProtocolReflectiveListening)
	case r.reg.InGroup(catalog.GroupAngry, tags):
		return r.decide(RuleAngry, domain.PersonaNova, domain.ProtocolThoughtRecord)
	case mood <= 3:
		return r.decide(RuleLowMood, domain.PersonaAtlas, domain.ProtocolValuesCheck)
	case mood >= 7:
		return r.decide(RuleHighMood, domain.PersonaSage, domain.ProtocolGratitude)
	default:
		return r.decide(RuleDefault, domain.PersonaSol, domain.ProtocolReflectiveListening)
	}
}

func (r *Router) hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// decide looks up targets that the registry guarantees to exist at load time.
func (r *Router) decide(rule string, persona domain.PersonaID, protocol domain.ProtocolID) domain.Decision {
	p, _ := r.reg.Persona(persona)
	pr, _ := r.reg.Protocol(protocol)
	return domain.Decision{
		Persona:  p,
		Protocol: pr,
		Priority: domain.PriorityNormal,
		Rule:     rule,
	}
}
