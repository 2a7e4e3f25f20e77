package domain

import (
	"fmt"
	"strings"
)

// TriggerKind identifies how a carrier is selected on the aggregator page.
type TriggerKind string

const (
	// TriggerSelect selects the carrier through the page's own setExp/doCheckR functions.
	TriggerSelect TriggerKind = "SELECT"
	// TriggerRedirect sends the browser to a carrier-specific page instead.
	TriggerRedirect TriggerKind = "REDIRECT"
)

// Trigger is the "select this carrier and submit" instruction for one carrier.
// Exactly one of Code or PathTemplate is meaningful, depending on Kind.
type Trigger struct {
	// Kind tells the driver which variant this is.
	Kind TriggerKind `json:"kind"`
	// Code is the aggregator's carrier code, used with TriggerSelect.
	Code string `json:"code,omitempty"`
	// PathTemplate is a URL (absolute or relative to the aggregator) with a single %s
	// placeholder for the waybill, used with TriggerRedirect.
	PathTemplate string `json:"path_template,omitempty"`
}

// SelectCarrier builds a TriggerSelect trigger.
func SelectCarrier(code string) Trigger {
	return Trigger{Kind: TriggerSelect, Code: code}
}

// RedirectTo builds a TriggerRedirect trigger.
func RedirectTo(pathTemplate string) Trigger {
	return Trigger{Kind: TriggerRedirect, PathTemplate: pathTemplate}
}

// Expedition is a carrier supported by the aggregator.
type Expedition struct {
	// Name is the display name shown to users.
	Name string `json:"name"`
	// Trigger selects this carrier on the aggregator page.
	Trigger Trigger `json:"trigger"`
}

// DefaultExpeditions returns the compiled-in carrier list in registration order.
func DefaultExpeditions() []Expedition {
	return []Expedition{
		{Name: "JNE", Trigger: SelectCarrier("JNE")},
		{Name: "LION PARCEL", Trigger: SelectCarrier("LIONPARCEL")},
		{Name: "NINJA", Trigger: SelectCarrier("NINJA")},
		{Name: "ANTERAJA", Trigger: SelectCarrier("ANTERAJA")},
		{Name: "POS INDONESIA", Trigger: SelectCarrier("POS")},
		{Name: "SHOPEE EXPRESS", Trigger: SelectCarrier("SPX")},
		{Name: "CITYLINK EXPRESS", Trigger: SelectCarrier("CITYLINK")},
		{Name: "INDAH LOGISTIK CARGO", Trigger: SelectCarrier("INDAH")},
		{Name: "INDAH LOGISTIK CARGO 2", Trigger: RedirectTo("cek-resi-indah-cargo.php?noresi=%s")},
		{Name: "SAP EXPRESS", Trigger: SelectCarrier("SAP")},
		{Name: "ZDEX ZALORA", Trigger: SelectCarrier("ZDEX")},
		{Name: "KERRY EXPRESS", Trigger: SelectCarrier("KERRY")},
		{Name: "SF EXPRESS", Trigger: SelectCarrier("SF")},
		{Name: "RCL RED CARPET LOGISTICS", Trigger: SelectCarrier("RCL")},
		{Name: "JET EXPRESS", Trigger: SelectCarrier("JETEXPRESS")},
		{Name: "QRIM EXPRESS", Trigger: SelectCarrier("QRIM")},
		{Name: "ARK XPRESS", Trigger: SelectCarrier("ARK")},
		{Name: "KGX PRESS", Trigger: SelectCarrier("KGX")},
		{Name: "REX INDONESIA", Trigger: SelectCarrier("REX")},
		{Name: "NSS EXPRESS", Trigger: SelectCarrier("NSS")},
		{Name: "STANDARD EXPRESS/LWE", Trigger: SelectCarrier("LWE")},
		{Name: "STANDARD EXPRESS/LWE 2", Trigger: RedirectTo("cek-resi-standard-express-lwe.php?noresi=%s")},
		{Name: "KI8 EXPRESS", Trigger: RedirectTo("https://cekresi.com/cek/?kurir=KI&noresi=%s")},
		{Name: "OEXPRESS", Trigger: SelectCarrier("OEXPRESS")},
		{Name: "LUAR NEGERI/BEA CUKAI", Trigger: SelectCarrier("BEACUKAI")},
	}
}

// NormalizeName returns the registry key for a carrier name.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Registry is the read-only set of supported carriers.
type Registry struct {
	expeditions []Expedition
	index       map[string]int
}

// NewRegistry builds a Registry, rejecting entries whose normalized names collide.
func NewRegistry(expeditions []Expedition) (*Registry, error) {
	r := &Registry{
		expeditions: make([]Expedition, 0, len(expeditions)),
		index:       make(map[string]int, len(expeditions)),
	}

	for _, e := range expeditions {
		key := NormalizeName(e.Name)
		if key == "" {
			return nil, fmt.Errorf("expedition with empty name")
		}
		if _, exists := r.index[key]; exists {
			return nil, fmt.Errorf("duplicate expedition: %s", key)
		}
		r.index[key] = len(r.expeditions)
		r.expeditions = append(r.expeditions, e)
	}

	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(expeditions []Expedition) *Registry {
	r, err := NewRegistry(expeditions)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve looks up a carrier by name, ignoring case and surrounding whitespace.
func (r *Registry) Resolve(name string) (Expedition, bool) {
	i, ok := r.index[NormalizeName(name)]
	if !ok {
		return Expedition{}, false
	}
	return r.expeditions[i], true
}

// IsKnown reports whether name resolves to a registered carrier.
func (r *Registry) IsKnown(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// Names returns the display names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.expeditions))
	for i, e := range r.expeditions {
		names[i] = e.Name
	}
	return names
}
