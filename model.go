package nibe

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
)

// Series distinguishes the two disjoint register-map families named in
// the GLOSSARY.
type Series int

const (
	SeriesUnknown Series = iota
	SeriesF
	SeriesS
	SeriesCustom
)

func (s Series) String() string {
	switch s {
	case SeriesF:
		return "F"
	case SeriesS:
		return "S"
	case SeriesCustom:
		return "CUSTOM"
	default:
		return "UNKNOWN"
	}
}

// modelEntry is a model registry entry: {series, data_file_key}. Several
// model identifiers can share one data file key (F1155 and F1255 both
// resolve to "f1155_f1255"), grounded on heatpump.py's Model enum.
type modelEntry struct {
	series      Series
	dataFileKey string
}

// knownModels mirrors heatpump.py's Model enum verbatim: every value the
// original groups under one data file.
var knownModels = map[string]modelEntry{
	"F1155": {SeriesF, "f1155_f1255"},
	"F1255": {SeriesF, "f1155_f1255"},

	"F1145": {SeriesF, "f1145_f1245"},
	"F1245": {SeriesF, "f1145_f1245"},

	"F1345": {SeriesF, "f1345"},
	"F1355": {SeriesF, "f1355"},

	"F730": {SeriesF, "f730"},
	"F750": {SeriesF, "f750"},

	"F370": {SeriesF, "f370_f470"},
	"F470": {SeriesF, "f370_f470"},

	"SMO20": {SeriesS, "smo20"},
	"SMO40": {SeriesS, "smo40"},

	"VVM225": {SeriesS, "vvm225_vvm320_vvm325"},
	"VVM320": {SeriesS, "vvm225_vvm320_vvm325"},
	"VVM325": {SeriesS, "vvm225_vvm320_vvm325"},

	"VVM310": {SeriesS, "vvm310_vvm500"},
	"VVM500": {SeriesS, "vvm310_vvm500"},
}

// modelOrder fixes the "first match wins" scan order for IdentifyModel:
// Go maps have no stable iteration order, so the substring scan is over
// this slice instead of ranging knownModels directly.
var modelOrder = func() []string {
	names := make([]string, 0, len(knownModels))
	for name := range knownModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// IdentifyModel performs a case-insensitive substring match of product
// against the known model names, first match in modelOrder wins.
func IdentifyModel(product string) (string, error) {
	upper := strings.ToUpper(product)
	for _, name := range modelOrder {
		if strings.Contains(upper, name) {
			return name, nil
		}
	}
	return "", &ModelIdentificationError{Product: product}
}

// SeriesOf returns the register-map family a model name belongs to.
func SeriesOf(model string) (Series, error) {
	entry, ok := knownModels[strings.ToUpper(model)]
	if !ok {
		return SeriesUnknown, &ModelIdentificationError{Product: model}
	}
	return entry.series, nil
}

// Product is the decoded PRODUCT_INFO_MSG payload, per §3.
type Product struct {
	Model           string
	FirmwareVersion uint16
}

// registerDef mirrors the JSON shape of §6's register definition files.
type registerDef struct {
	Name     string            `json:"name"`
	Title    string            `json:"title"`
	Size     string            `json:"size"`
	Factor   *int              `json:"factor"`
	Min      *int              `json:"min"`
	Max      *int              `json:"max"`
	Unit     string            `json:"unit"`
	Info     string            `json:"info"`
	Write    bool              `json:"write"`
	Mappings map[string]string `json:"mappings"`
	Type     string            `json:"type"`
}

// Registry owns the register descriptors for one model, the Go analogue
// of heatpump.py's HeatPump._address_to_coil/_name_to_coil. It is the
// sole long-lived owner of *Register; Values only borrow a pointer into
// it.
type Registry struct {
	model  string
	series Series

	byAddress map[uint16]*Register
	byName    map[string]*Register
	order     []uint16
}

// Load parses a register definition JSON document (§6) into a Registry.
// Descriptors with invalid combinations are skipped with a logged
// warning, per §4.3; the remainder populate both lookup maps.
func Load(model string, r io.Reader, logger *log.Logger) (*Registry, error) {
	series, err := SeriesOf(model)
	if err != nil {
		return nil, err
	}

	var raw map[string]registerDef
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &ConfigError{Op: "Load", Err: fmt.Errorf("malformed register definition document: %w", err)}
	}

	reg := &Registry{
		model:     model,
		series:    series,
		byAddress: make(map[uint16]*Register, len(raw)),
		byName:    make(map[string]*Register, len(raw)),
	}

	addresses := make([]string, 0, len(raw))
	for addr := range raw {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	for _, addrStr := range addresses {
		def := raw[addrStr]
		var addr int
		if _, err := fmt.Sscanf(addrStr, "%d", &addr); err != nil {
			logWarn(logger, "skipping register %q: address is not numeric", addrStr)
			continue
		}

		opts := []RegisterOption{WithWritable(def.Write)}
		if def.Factor != nil {
			opts = append(opts, WithFactor(*def.Factor))
		}
		if def.Min != nil {
			opts = append(opts, WithRawMin(*def.Min))
		}
		if def.Max != nil {
			opts = append(opts, WithRawMax(*def.Max))
		}
		if def.Unit != "" {
			opts = append(opts, WithUnit(def.Unit))
		}
		if def.Info != "" {
			opts = append(opts, WithInfo(def.Info))
		}
		if len(def.Mappings) > 0 {
			opts = append(opts, WithMapping(def.Mappings))
		}
		if def.Type == string(TypeDate) {
			opts = append(opts, WithType(TypeDate))
		}

		descriptor, err := NewRegister(uint16(addr), def.Name, def.Title, Width(def.Size), opts...)
		if err != nil {
			logWarn(logger, "skipping register %s (%s): %v", addrStr, def.Name, err)
			continue
		}

		reg.byAddress[uint16(addr)] = descriptor
		reg.byName[descriptor.Name] = descriptor
		reg.order = append(reg.order, uint16(addr))
	}
	sort.Slice(reg.order, func(i, j int) bool { return reg.order[i] < reg.order[j] })

	return reg, nil
}

func logWarn(logger *log.Logger, format string, args ...interface{}) {
	if logger == nil {
		return
	}
	logger.Printf("nibe: "+format, args...)
}

func (r *Registry) Model() string   { return r.model }
func (r *Registry) Series() Series  { return r.series }

// GetByAddress implements §4.1's get_by_address.
func (r *Registry) GetByAddress(address uint16) (*Register, error) {
	if reg, ok := r.byAddress[address]; ok {
		return reg, nil
	}
	return nil, &NotFoundError{Kind: "address", Key: fmt.Sprintf("%d", address)}
}

// GetByName implements §4.1's get_by_name.
func (r *Registry) GetByName(name string) (*Register, error) {
	if reg, ok := r.byName[name]; ok {
		return reg, nil
	}
	return nil, &NotFoundError{Kind: "name", Key: name}
}

// All returns every descriptor in ascending address order.
func (r *Registry) All() []*Register {
	out := make([]*Register, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, r.byAddress[addr])
	}
	return out
}

// Len reports how many registers are loaded.
func (r *Registry) Len() int { return len(r.order) }
