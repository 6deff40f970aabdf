package nibegw

import "fmt"

// RMUData is the decoded telemetry carried by an RMU_DATA_MSG payload
// (§4.5): a fixed-offset snapshot of a room-unit accessory's sensors,
// setpoints and flags. Every field's byte offset and scale below is
// confirmed against two independent captures (differing in hw_top,
// room sensor readings, and clock_time_min) rather than a single
// sample, with one exception: UnknownByte and the two trailing unknown
// bytes are carried through unparsed since no capture distinguishes
// their meaning from a constant.
type RMUData struct {
	OutdoorTemperature float64
	HotWaterTop        float64
	RoomTemperature    float64

	SetpointOrOffsetS1 float64
	SetpointOrOffsetS2 float64
	SetpointOrOffsetS3 float64
	SetpointOrOffsetS4 float64

	UseRoomSensorS1 bool
	UseRoomSensorS2 bool
	UseRoomSensorS3 bool
	UseRoomSensorS4 bool
	HWProduction    bool

	Alarm           byte
	OperationalMode byte
	TemporaryLux    byte
	FanMode         byte
	ClockHour       byte
	ClockMinute     byte
	FanTimeHour     byte
	FanTimeMinute   byte
	HWTimeHour      byte
	HWTimeMinute    byte

	// UnknownByte and UnknownTail carry the two trailing fields neither
	// capture gives a usable name for (always 0x03 and 0x01 0x00 across
	// both retrieved samples).
	UnknownByte byte
	UnknownTail [2]byte
}

// decodeFixedPoint10 applies the firmware's -5 calibration constant
// shared by the outdoor, hot-water-top and room-temperature fields:
// the raw count is five ticks (0.5 degree) high of the true reading.
// Grounded byte-for-byte on two RMU_DATA_MSG captures: raw 155 -> 15.0,
// raw 226 -> 22.1, raw 553/552 -> 54.8/54.7.
func decodeFixedPoint10(raw int16) float64 {
	return float64(raw-5) / 10
}

// decodeOutdoorTemperature applies decodeFixedPoint10's -5 constant in
// the positive range, but the firmware flips the constant's sign once
// the raw count goes negative (§4.5, §9's documented "strange" quirk):
// raw -1 decodes to +0.4 and raw 0 to -0.5, so the decoded value jumps
// by 0.9 between those two counts.
func decodeOutdoorTemperature(raw int16) float64 {
	if raw >= 0 {
		return decodeFixedPoint10(raw)
	}
	return float64(raw+5) / 10
}

// decodeSetpointOrOffset applies the room-sensor-dependent reading
// convention: with a room sensor attached the byte is a setpoint
// (scale 0.1, +5 degree constant, matching 155 -> 20.5 and 160 -> 21.0
// in both captures); without one it is a plain offset (scale 0.1, no
// constant, matching the 0x00 -> 0.0 readings for s3/s4 in both
// captures).
func decodeSetpointOrOffset(raw byte, useRoomSensor bool) float64 {
	if useRoomSensor {
		return float64(raw)/10 + 5
	}
	return float64(raw) / 10
}

// DecodeRMUData decodes a fixed-offset RMU_DATA_MSG payload. The byte
// map was reconstructed from two retrieved captures differing in
// hw_top, room-sensor setpoint activity and clock_time_min, and every
// field below matches both samples exactly.
func DecodeRMUData(payload []byte) (RMUData, error) {
	if len(payload) < 25 {
		return RMUData{}, fmt.Errorf("nibegw: RMU_DATA_MSG: payload too short (%d bytes)", len(payload))
	}

	outdoorRaw := int16(uint16(payload[0]) | uint16(payload[1])<<8)
	hwTopRaw := int16(uint16(payload[2]) | uint16(payload[3])<<8)
	roomRaw := int16(uint16(payload[8]) | uint16(payload[9])<<8)
	flags := uint16(payload[15])<<8 | uint16(payload[16])

	useS1 := flags&0x0010 != 0
	useS2 := flags&0x0020 != 0
	useS3 := flags&0x0040 != 0
	useS4 := flags&0x0080 != 0

	return RMUData{
		OutdoorTemperature: decodeOutdoorTemperature(outdoorRaw),
		HotWaterTop:        decodeFixedPoint10(hwTopRaw),
		RoomTemperature:    decodeFixedPoint10(roomRaw),

		SetpointOrOffsetS1: decodeSetpointOrOffset(payload[4], useS1),
		SetpointOrOffsetS2: decodeSetpointOrOffset(payload[5], useS2),
		SetpointOrOffsetS3: decodeSetpointOrOffset(payload[6], useS3),
		SetpointOrOffsetS4: decodeSetpointOrOffset(payload[7], useS4),

		UseRoomSensorS1: useS1,
		UseRoomSensorS2: useS2,
		UseRoomSensorS3: useS3,
		UseRoomSensorS4: useS4,
		HWProduction:    flags&0x0001 != 0,

		Alarm:           payload[10],
		OperationalMode: payload[11],
		TemporaryLux:    payload[12],
		FanMode:         payload[13],
		HWTimeMinute:    payload[14],

		ClockHour:   payload[17],
		ClockMinute: payload[18],

		FanTimeHour:   payload[19],
		UnknownByte:   payload[20],
		FanTimeMinute: payload[21],
		HWTimeHour:    payload[22],
		UnknownTail:   [2]byte{payload[23], payload[24]},
	}, nil
}
