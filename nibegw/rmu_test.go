package nibegw

import "testing"

func TestDecodeRMUDataFirstCapture(t *testing.T) {
	buf := hexBytes(t, "5c001a62199b0029029ba00000e20000000000000239001f0003000001002e")
	frame, _, err := ParseResponse(buf)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if frame.Command != RMUDataMsg {
		t.Fatalf("command = %v, want RMUDataMsg", frame.Command)
	}

	data, err := DecodeRMUData(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeRMUData: %v", err)
	}

	assertClose(t, "OutdoorTemperature", data.OutdoorTemperature, 15.0)
	assertClose(t, "HotWaterTop", data.HotWaterTop, 54.8)
	assertClose(t, "RoomTemperature", data.RoomTemperature, 22.1)
	assertClose(t, "SetpointOrOffsetS1", data.SetpointOrOffsetS1, 20.5)
	assertClose(t, "SetpointOrOffsetS2", data.SetpointOrOffsetS2, 21.0)
	assertClose(t, "SetpointOrOffsetS3", data.SetpointOrOffsetS3, 0.0)
	assertClose(t, "SetpointOrOffsetS4", data.SetpointOrOffsetS4, 0.0)

	if !data.UseRoomSensorS1 || !data.UseRoomSensorS2 {
		t.Error("expected use_room_sensor_s1 and s2 set")
	}
	if data.UseRoomSensorS3 || data.UseRoomSensorS4 {
		t.Error("expected use_room_sensor_s3 and s4 clear")
	}
	if !data.HWProduction {
		t.Error("expected hw_production set")
	}

	if data.ClockHour != 0 || data.ClockMinute != 31 {
		t.Errorf("clock = %d:%d, want 0:31", data.ClockHour, data.ClockMinute)
	}
	if data.Alarm != 0 || data.OperationalMode != 0 || data.TemporaryLux != 0 || data.FanMode != 0 {
		t.Error("expected alarm/operational_mode/temporary_lux/fan_mode all zero")
	}
}

func TestDecodeRMUDataSecondCapture(t *testing.T) {
	buf := hexBytes(t, "5c001962199b0028029ba00000e20000000000000239002100030000010012")
	frame, _, err := ParseResponse(buf)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}

	data, err := DecodeRMUData(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeRMUData: %v", err)
	}

	assertClose(t, "OutdoorTemperature", data.OutdoorTemperature, 15.0)
	assertClose(t, "HotWaterTop", data.HotWaterTop, 54.7)
	assertClose(t, "RoomTemperature", data.RoomTemperature, 22.1)
	assertClose(t, "SetpointOrOffsetS1", data.SetpointOrOffsetS1, 20.5)
	assertClose(t, "SetpointOrOffsetS2", data.SetpointOrOffsetS2, 21.0)

	if data.ClockHour != 0 || data.ClockMinute != 33 {
		t.Errorf("clock = %d:%d, want 0:33", data.ClockHour, data.ClockMinute)
	}
}

func assertClose(t *testing.T, field string, got, want float64) {
	t.Helper()
	const eps = 1e-9
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > eps {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}
