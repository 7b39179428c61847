package status

// Source names the signal a payload was chosen from.
type Source string

const (
	SourceWiFi     Source = "wifi"
	SourceLocation Source = "location"
	SourceHidden   Source = "hidden"
)

// Match is the outcome of one lookup.
type Match struct {
	Source  Source
	Key     string
	Payload Payload
	// Mapped is false when Key had no configured status.
	Mapped bool
}

// Mapper is a pure lookup over the configured tables. It is safe for
// concurrent use; tables are copied on construction and never mutated.
type Mapper struct {
	byWiFi       map[string]Payload
	byLocation   map[string]Payload
	hidden       Payload
	hideUnmapped bool
}

type Tables struct {
	ByWiFi     map[string]map[string]any
	ByLocation map[string]map[string]any
	Hidden     map[string]any
	// HideUnmapped publishes Hidden instead of the absent payload for
	// names without a configured status.
	HideUnmapped bool
}

func NewMapper(t Tables) *Mapper {
	m := &Mapper{
		byWiFi:       make(map[string]Payload, len(t.ByWiFi)),
		byLocation:   make(map[string]Payload, len(t.ByLocation)),
		hidden:       clone(t.Hidden),
		hideUnmapped: t.HideUnmapped,
	}
	for k, v := range t.ByWiFi {
		m.byWiFi[k] = clone(v)
	}
	for k, v := range t.ByLocation {
		m.byLocation[k] = clone(v)
	}
	return m
}

func (m *Mapper) ByWiFi(name string) Match {
	return m.lookup(SourceWiFi, m.byWiFi, name)
}

func (m *Mapper) ByLocation(place string) Match {
	return m.lookup(SourceLocation, m.byLocation, place)
}

// Hidden is the fallback used when the platform offers no usable signal.
func (m *Mapper) Hidden() Match {
	return Match{Source: SourceHidden, Payload: m.hidden, Mapped: true}
}

func (m *Mapper) lookup(src Source, table map[string]Payload, key string) Match {
	if p, ok := table[key]; ok && key != "" {
		return Match{Source: src, Key: key, Payload: p, Mapped: true}
	}
	if m.hideUnmapped {
		return Match{Source: SourceHidden, Key: key, Payload: m.hidden}
	}
	return Match{Source: src, Key: key}
}
