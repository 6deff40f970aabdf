package nibe

// Auxiliary "group" descriptors: static per-series lookup tables mapping
// logical concepts to register addresses, per §4.9. These are compile-time
// constants, not runtime state, grounded verbatim on the original Python's
// nibe/coil_groups.py (_CLIMATE_COILGROUPS_F/_S, _WATER_HEATER_COILGROUPS_F/_S,
// _FAN_COILGROUPS_F/_S, _UNIT_COILGROUPS_F/_S).

// UnitGroup exposes the unit-wide addresses every series carries.
type UnitGroup struct {
	Name                  string
	Prio                  uint16
	CoolingWithRoomSensor uint16
	Alarm                 uint16
	AlarmReset            uint16
}

// ClimateGroup exposes one climate system's addresses (S1-S4).
type ClimateGroup struct {
	Name              string
	ActiveAccessory   *uint16
	Current           uint16
	SetpointHeat      uint16
	SetpointCool      uint16
	MixingValveState  uint16
	UseRoomSensor     uint16
}

// ComfortMode is the hot-water operating mode. The F series names it
// ECONOMY/NORMAL/LUXURY, the S series LOW/NORMAL/HIGH.
type ComfortMode string

const (
	ComfortEconomy ComfortMode = "ECONOMY"
	ComfortNormal  ComfortMode = "NORMAL"
	ComfortLuxury  ComfortMode = "LUXURY"
	ComfortLow     ComfortMode = "LOW"
	ComfortHigh    ComfortMode = "HIGH"
)

// WaterHeaterGroup exposes one hot-water circuit's addresses.
type WaterHeaterGroup struct {
	Name                 string
	HotWaterLoad         uint16
	HotWaterComfortMode  uint16
	StartTemperature     map[ComfortMode]uint16
	StopTemperature      map[ComfortMode]uint16
	ActiveAccessory      *uint16
	TemporaryLux         *uint16
}

// FanGroup exposes one fan's speed-selection addresses.
type FanGroup struct {
	Name   string
	Speed  *uint16
	Speeds map[string]uint16
}

func u16(v uint16) *uint16 { return &v }

var unitGroupsF = map[string]UnitGroup{
	"main": {Name: "Main", Prio: 43086, CoolingWithRoomSensor: 47340, Alarm: 45001, AlarmReset: 45171},
}

var unitGroupsS = map[string]UnitGroup{
	"main": {Name: "Main", Prio: 31029, CoolingWithRoomSensor: 40171, Alarm: 31976, AlarmReset: 40023},
}

var climateGroupsF = map[string]ClimateGroup{
	"s1": {Name: "Climate System S1", Current: 40033, SetpointHeat: 47398, SetpointCool: 48785, MixingValveState: 43096, ActiveAccessory: nil, UseRoomSensor: 47394},
	"s2": {Name: "Climate System S2", Current: 40032, SetpointHeat: 47397, SetpointCool: 48784, MixingValveState: 43095, ActiveAccessory: u16(47302), UseRoomSensor: 47393},
	"s3": {Name: "Climate System S3", Current: 40031, SetpointHeat: 47396, SetpointCool: 48783, MixingValveState: 43094, ActiveAccessory: u16(47303), UseRoomSensor: 47392},
	"s4": {Name: "Climate System S4", Current: 40030, SetpointHeat: 47395, SetpointCool: 48782, MixingValveState: 43093, ActiveAccessory: u16(47304), UseRoomSensor: 47391},
}

var climateGroupsS = map[string]ClimateGroup{
	"s1": {Name: "Climate System S1", Current: 30027, SetpointHeat: 40207, SetpointCool: 40989, MixingValveState: 31034, ActiveAccessory: nil, UseRoomSensor: 40203},
	"s2": {Name: "Climate System S2", Current: 30026, SetpointHeat: 40206, SetpointCool: 40988, MixingValveState: 31033, ActiveAccessory: nil, UseRoomSensor: 40202},
	"s3": {Name: "Climate System S3", Current: 30025, SetpointHeat: 40205, SetpointCool: 40987, MixingValveState: 31032, ActiveAccessory: nil, UseRoomSensor: 40201},
	"s4": {Name: "Climate System S4", Current: 30024, SetpointHeat: 40204, SetpointCool: 40986, MixingValveState: 31031, ActiveAccessory: nil, UseRoomSensor: 40200},
}

var waterHeaterGroupsF = map[string]WaterHeaterGroup{
	"hw1": {
		Name: "Hot Water", HotWaterLoad: 40014, HotWaterComfortMode: 47041,
		StartTemperature: map[ComfortMode]uint16{ComfortEconomy: 47045, ComfortNormal: 47044, ComfortLuxury: 47043},
		StopTemperature:  map[ComfortMode]uint16{ComfortEconomy: 47049, ComfortNormal: 47048, ComfortLuxury: 47047},
		ActiveAccessory:  nil,
		TemporaryLux:     u16(48132),
	},
}

var waterHeaterGroupsS = map[string]WaterHeaterGroup{
	"hw1": {
		Name: "Hot Water", HotWaterLoad: 30010, HotWaterComfortMode: 31039,
		StartTemperature: map[ComfortMode]uint16{ComfortLow: 40061, ComfortNormal: 40060, ComfortHigh: 40059},
		StopTemperature:  map[ComfortMode]uint16{ComfortLow: 40065, ComfortNormal: 40064, ComfortHigh: 40063},
		ActiveAccessory:  nil,
		TemporaryLux:     nil,
	},
}

var fanGroupsF = map[string]FanGroup{
	"exhaust": {Name: "Exhaust", Speed: u16(47260), Speeds: map[string]uint16{"0": 47265, "1": 47264, "2": 47263, "3": 47262, "4": 47261}},
	"supply":  {Name: "Supply", Speed: u16(47260), Speeds: map[string]uint16{"0": 47270, "1": 47269, "2": 47268, "3": 47267, "4": 47266}},
}

var fanGroupsS = map[string]FanGroup{}

// UnitGroups returns the unit-wide group table for the given series.
func UnitGroups(s Series) map[string]UnitGroup {
	if s == SeriesS {
		return unitGroupsS
	}
	return unitGroupsF
}

// ClimateGroups returns the climate-system group table for the given
// series (keys "s1".."s4").
func ClimateGroups(s Series) map[string]ClimateGroup {
	if s == SeriesS {
		return climateGroupsS
	}
	return climateGroupsF
}

// WaterHeaterGroups returns the hot-water group table for the given
// series (key "hw1").
func WaterHeaterGroups(s Series) map[string]WaterHeaterGroup {
	if s == SeriesS {
		return waterHeaterGroupsS
	}
	return waterHeaterGroupsF
}

// FanGroups returns the fan group table for the given series. The S
// series table is empty: no S-series pump exposes a fan group.
func FanGroups(s Series) map[string]FanGroup {
	if s == SeriesS {
		return fanGroupsS
	}
	return fanGroupsF
}
