// Package catalog holds the static registry of personas, protocols, modes and
// the emotion taxonomy. The registry is loaded once from YAML and never mutated.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Emotion group ids the router relies on.
const (
	GroupAnxious  = "anxious"
	GroupSad      = "sad"
	GroupAngry    = "angry"
	GroupPositive = "positive"
)

type file struct {
	Personas  []domain.Persona  `yaml:"personas"`
	Protocols []domain.Protocol `yaml:"protocols"`
	Modes     []domain.Mode     `yaml:"modes"`
	Emotions  struct {
		HighRisk string                `yaml:"high_risk"`
		Groups   []domain.EmotionGroup `yaml:"groups"`
	} `yaml:"emotions"`
	Support []domain.SupportContact `yaml:"support"`
}

// Registry is an immutable lookup over catalog definitions.
type Registry struct {
	personas  []*domain.Persona
	protocols []*domain.Protocol
	modes     []*domain.Mode
	groups    []domain.EmotionGroup
	highRisk  string
	support   []domain.SupportContact

	personaByID  map[domain.PersonaID]*domain.Persona
	protocolByID map[domain.ProtocolID]*domain.Protocol
	modeByID     map[domain.ModeID]*domain.Mode
	groupByID    map[string]map[string]struct{}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the registry built from the embedded catalog.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(defaultCatalog)
	})
	return defaultReg, defaultErr
}

// MustDefault is Default for callers that cannot recover from a broken build.
func MustDefault() *Registry {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	return reg
}

// Load returns the registry at path, or the embedded one when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML and validates it.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	r := &Registry{
		groups:       f.Emotions.Groups,
		highRisk:     strings.ToLower(strings.TrimSpace(f.Emotions.HighRisk)),
		support:      f.Support,
		personaByID:  make(map[domain.PersonaID]*domain.Persona, len(f.Personas)),
		protocolByID: make(map[domain.ProtocolID]*domain.Protocol, len(f.Protocols)),
		modeByID:     make(map[domain.ModeID]*domain.Mode, len(f.Modes)),
		groupByID:    make(map[string]map[string]struct{}, len(f.Emotions.Groups)),
	}

	for i := range f.Personas {
		p := &f.Personas[i]
		if p.ID == "" || strings.TrimSpace(p.SystemPrompt) == "" {
			return nil, fmt.Errorf("persona %d: id and system_prompt are required", i)
		}
		if _, dup := r.personaByID[p.ID]; dup {
			return nil, fmt.Errorf("persona %s: duplicate id", p.ID)
		}
		r.personaByID[p.ID] = p
		r.personas = append(r.personas, p)
	}

	for i := range f.Protocols {
		p := &f.Protocols[i]
		if err := validateProtocol(p); err != nil {
			return nil, err
		}
		if _, dup := r.protocolByID[p.ID]; dup {
			return nil, fmt.Errorf("protocol %s: duplicate id", p.ID)
		}
		r.protocolByID[p.ID] = p
		r.protocols = append(r.protocols, p)
	}

	for i := range f.Modes {
		m := &f.Modes[i]
		if m.ID == "" || m.MaxOutputTokens <= 0 {
			return nil, fmt.Errorf("mode %d: id and max_output_tokens are required", i)
		}
		r.modeByID[m.ID] = m
		r.modes = append(r.modes, m)
	}

	for _, g := range f.Emotions.Groups {
		set := make(map[string]struct{}, len(g.Tags))
		for _, t := range g.Tags {
			set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
		}
		r.groupByID[g.ID] = set
	}

	if err := r.checkRoutingTargets(); err != nil {
		return nil, err
	}
	return r, nil
}

func validateProtocol(p *domain.Protocol) error {
	if p.ID == "" {
		return errors.New("protocol: id is required")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("protocol %s: no steps", p.ID)
	}
	seen := make(map[domain.StepKey]struct{}, len(p.Steps))
	for i := range p.Steps {
		st := &p.Steps[i]
		if st.Key == "" {
			return fmt.Errorf("protocol %s step %d: key is required", p.ID, i)
		}
		if _, dup := seen[st.Key]; dup {
			return fmt.Errorf("protocol %s: duplicate step key %s", p.ID, st.Key)
		}
		seen[st.Key] = struct{}{}
		if st.Kind == "" {
			st.Kind = domain.InputText
		}
		switch st.Kind {
		case domain.InputText:
		case domain.InputSingleChoice, domain.InputMultiChoice:
			if len(st.Options) == 0 {
				return fmt.Errorf("protocol %s step %s: choice step without options", p.ID, st.Key)
			}
		default:
			return fmt.Errorf("protocol %s step %s: unknown kind %q", p.ID, st.Key, st.Kind)
		}
	}
	return nil
}

// checkRoutingTargets makes sure every persona, protocol, mode and group the
// router and services depend on is defined.
func (r *Registry) checkRoutingTargets() error {
	for _, id := range []domain.PersonaID{domain.PersonaNova, domain.PersonaSol, domain.PersonaAtlas, domain.PersonaWren, domain.PersonaSage} {
		if _, ok := r.personaByID[id]; !ok {
			return fmt.Errorf("catalog: missing persona %s", id)
		}
	}
	for _, id := range []domain.ProtocolID{domain.ProtocolGrounding, domain.ProtocolReflectiveListening, domain.ProtocolThoughtRecord, domain.ProtocolValuesCheck, domain.ProtocolGratitude} {
		if _, ok := r.protocolByID[id]; !ok {
			return fmt.Errorf("catalog: missing protocol %s", id)
		}
	}
	for _, id := range []domain.ModeID{domain.ModeDebrief, domain.ModeGuided, domain.ModeChat, domain.ModeRecap} {
		if _, ok := r.modeByID[id]; !ok {
			return fmt.Errorf("catalog: missing mode %s", id)
		}
	}
	for _, id := range []string{GroupAnxious, GroupSad, GroupAngry} {
		if _, ok := r.groupByID[id]; !ok {
			return fmt.Errorf("catalog: missing emotion group %s", id)
		}
	}
	if r.highRisk == "" {
		return errors.New("catalog: high_risk emotion tag is required")
	}
	return nil
}

func (r *Registry) Persona(id domain.PersonaID) (*domain.Persona, bool) {
	p, ok := r.personaByID[domain.PersonaID(strings.ToLower(strings.TrimSpace(string(id))))]
	return p, ok
}

func (r *Registry) Protocol(id domain.ProtocolID) (*domain.Protocol, bool) {
	p, ok := r.protocolByID[domain.ProtocolID(strings.ToLower(strings.TrimSpace(string(id))))]
	return p, ok
}

func (r *Registry) Mode(id domain.ModeID) (*domain.Mode, bool) {
	m, ok := r.modeByID[domain.ModeID(strings.ToLower(strings.TrimSpace(string(id))))]
	return m, ok
}

func (r *Registry) Personas() []*domain.Persona   { return r.personas }
func (r *Registry) Protocols() []*domain.Protocol { return r.protocols }
func (r *Registry) Modes() []*domain.Mode         { return r.modes }

func (r *Registry) EmotionGroups() []domain.EmotionGroup    { return r.groups }
func (r *Registry) SupportContacts() []domain.SupportContact { return r.support }

// HighRiskTag is the emotion tag that always routes to crisis handling.
func (r *Registry) HighRiskTag() string { return r.highRisk }

// InGroup reports whether any of tags belongs to the named emotion group.
// Tags are expected to be normalized already.
func (r *Registry) InGroup(group string, tags []string) bool {
	set := r.groupByID[group]
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

var _ domain.Lookup = (*Registry)(nil)
