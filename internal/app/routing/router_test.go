package routing_test

import (
	"testing"

	"github.com/PabloGalante/mindbloss/internal/app/routing"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
)

func newRouter(t *testing.T) *routing.Router {
	t.Helper()
	reg, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return routing.NewRouter(reg)
}

func TestRouteScenarios(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name     string
		mood     int
		emotions []string
		hour     int
		persona  domain.PersonaID
		protocol domain.ProtocolID
		priority domain.Priority
		rule     string
	}{
		{"hopeless low mood", 1, []string{"hopeless"}, 12, domain.PersonaAtlas, domain.ProtocolValuesCheck, domain.PriorityHigh, routing.RuleCrisis},
		{"evening anxious", 5, []string{"anxious"}, 22, domain.PersonaWren, domain.ProtocolGrounding, domain.PriorityNormal, routing.RuleEvening},
		{"early morning overwhelmed", 5, []string{"Overwhelmed"}, 6, domain.PersonaWren, domain.ProtocolGrounding, domain.PriorityNormal, routing.RuleEvening},
		{"daytime anxious falls through", 5, []string{"anxious"}, 14, domain.PersonaSol, domain.ProtocolReflectiveListening, domain.PriorityNormal, routing.RuleDefault},
		{"good mood no emotions", 8, nil, 10, domain.PersonaSage, domain.ProtocolGratitude, domain.PriorityNormal, routing.RuleHighMood},
		{"lonely", 5, []string{"lonely"}, 10, domain.PersonaSol, domain.ProtocolReflectiveListening, domain.PriorityNormal, routing.RuleSad},
		{"frustrated", 6, []string{"frustrated"}, 10, domain.PersonaNova, domain.ProtocolThoughtRecord, domain.PriorityNormal, routing.RuleAngry},
		{"low mood no tags", 3, nil, 10, domain.PersonaAtlas, domain.ProtocolValuesCheck, domain.PriorityNormal, routing.RuleLowMood},
		{"neutral", 5, []string{"calm"}, 10, domain.PersonaSol, domain.ProtocolReflectiveListening, domain.PriorityNormal, routing.RuleDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Route(tt.mood, tt.emotions, tt.hour)
			if d.Persona.ID != tt.persona {
				t.Errorf("persona = %s, want %s", d.Persona.ID, tt.persona)
			}
			if d.Protocol.ID != tt.protocol {
				t.Errorf("protocol = %s, want %s", d.Protocol.ID, tt.protocol)
			}
			if d.Priority != tt.priority {
				t.Errorf("priority = %s, want %s", d.Priority, tt.priority)
			}
			if d.Rule != tt.rule {
				t.Errorf("rule = %s, want %s", d.Rule, tt.rule)
			}
			if d.Crisis != (tt.priority == domain.PriorityHigh) {
				t.Errorf("crisis = %v with priority %s", d.Crisis, d.Priority)
			}
		})
	}
}

func TestCrisisAlwaysWins(t *testing.T) {
	r := newRouter(t)
	others := [][]string{nil, {"angry"}, {"anxious"}, {"sad", "angry"}, {"happy"}}

	for mood := 0; mood <= 10; mood++ {
		for hour := 0; hour < 24; hour++ {
			for _, extra := range others {
				emotions := append([]string{"hopeless"}, extra...)
				d := r.Route(mood, emotions, hour)
				if d.Priority != domain.PriorityHigh || d.Persona.ID != domain.PersonaAtlas {
					t.Fatalf("mood=%d hour=%d emotions=%v: got %s/%s", mood, hour, emotions, d.Persona.ID, d.Priority)
				}
			}
		}
	}

	for mood := 0; mood <= 2; mood++ {
		d := r.Route(mood, []string{"angry", "anxious"}, 23)
		if d.Rule != routing.RuleCrisis || !d.Crisis {
			t.Fatalf("mood=%d should route to crisis, got %s", mood, d.Rule)
		}
	}
}

func TestRulePriorityOrder(t *testing.T) {
	r := newRouter(t)

	// hopeless beats anger
	if d := r.Route(5, []string{"hopeless", "angry"}, 12); d.Rule != routing.RuleCrisis {
		t.Fatalf("expected crisis, got %s", d.Rule)
	}
	// evening anxiety beats sadness
	if d := r.Route(5, []string{"sad", "stressed"}, 21); d.Rule != routing.RuleEvening {
		t.Fatalf("expected evening, got %s", d.Rule)
	}
	// sadness beats anger
	if d := r.Route(5, []string{"irritated", "hurt"}, 12); d.Rule != routing.RuleSad {
		t.Fatalf("expected sad, got %s", d.Rule)
	}
	// anger beats high mood
	if d := r.Route(9, []string{"angry"}, 12); d.Rule != routing.RuleAngry {
		t.Fatalf("expected angry, got %s", d.Rule)
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	r := newRouter(t)
	a := r.Route(4, []string{"sad", "angry"}, 3)
	b := r.Route(4, []string{"angry", "sad"}, 3)
	if a.Persona.ID != b.Persona.ID || a.Protocol.ID != b.Protocol.ID || a.Rule != b.Rule {
		t.Fatalf("emotion order changed the decision: %s vs %s", a.Rule, b.Rule)
	}
}
