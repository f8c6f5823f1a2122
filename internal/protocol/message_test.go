package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PushStatus(t *testing.T) {
	payload := []byte(`{"print":{"command":"push_status","sequence_id":"42","gcode_state":"RUNNING",
		"task_id":"101","subtask_id":7,"mc_percent":10,"big_fan1_speed":"30",
		"ams":{"ams":[{"id":"0","humidity":"4","temp":"24.5","tray":[{"id":"0","tray_type":"PLA","tray_color":"FF0000FF"},null,{"id":"2"}]}],"tray_now":"0"}}}`)

	msg, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, CategoryPrint, msg.Category)
	assert.Equal(t, "push_status", msg.Command)
	assert.Equal(t, "42", msg.SequenceID)
	assert.Equal(t, KindPushStatus, msg.Kind())
	assert.Equal(t, "command:push_status", msg.EventName())

	s, err := msg.PushStatus()
	require.NoError(t, err)
	assert.Equal(t, StateRunning, s.GcodeState)
	assert.Equal(t, "101", s.TaskID.String())
	assert.Equal(t, "7", s.SubtaskID.String())
	assert.Equal(t, 30, s.BigFan1Speed.Int())
	require.NotNil(t, s.AMS)
	require.Len(t, s.AMS.AMS, 1)
	assert.True(t, s.AMS.AMS[0].Tray[0].Loaded())
	assert.False(t, s.AMS.AMS[0].Tray[1].Loaded())
	assert.False(t, s.AMS.AMS[0].Tray[2].Loaded())
}

func decodeStatus(t *testing.T, payload string) *PushStatus {
	t.Helper()
	msg, err := Decode([]byte(payload))
	require.NoError(t, err)
	s, err := msg.PushStatus()
	require.NoError(t, err)
	return s
}

func TestPushStatus_Complete(t *testing.T) {
	full := decodeStatus(t, `{"print":{"command":"push_status","gcode_state":"IDLE","bed_temper":20}}`)
	assert.True(t, full.Complete())
	assert.True(t, full.Has("bed_temper"))
	assert.False(t, full.Has("task_id"))

	partial := decodeStatus(t, `{"print":{"command":"push_status","sequence_id":"5","bed_temper":55.5}}`)
	assert.False(t, partial.Complete())
	assert.Equal(t, 55.5, partial.BedTemper)

	built := &PushStatus{GcodeState: StateRunning}
	assert.True(t, built.Complete())
	assert.True(t, built.Has("task_id"))
}

func TestPushStatus_Merge(t *testing.T) {
	base := decodeStatus(t, `{"print":{"command":"push_status","sequence_id":"1","gcode_state":"RUNNING",
		"task_id":"1","subtask_id":"10","subtask_name":"benchy","bed_temper":20,"mc_percent":40}}`)
	partial := decodeStatus(t, `{"print":{"command":"push_status","sequence_id":"5","bed_temper":55.5}}`)

	merged, err := partial.Merge(base)
	require.NoError(t, err)
	assert.True(t, merged.Complete())
	assert.Equal(t, StateRunning, merged.GcodeState)
	assert.Equal(t, "1", merged.TaskID.String())
	assert.Equal(t, "10", merged.SubtaskID.String())
	assert.Equal(t, "benchy", merged.SubtaskName)
	assert.Equal(t, 40, merged.MCPercent)
	assert.Equal(t, 55.5, merged.BedTemper)
	assert.Equal(t, "5", merged.SequenceID.String())

	assert.Equal(t, 20.0, base.BedTemper, "base must not change")
	assert.False(t, partial.Complete(), "partial must not change")
}

func TestPushStatus_MergeOntoBuiltSnapshot(t *testing.T) {
	base := &PushStatus{Command: CommandPushStatus, GcodeState: StatePause, TaskID: "3", MCPercent: 12}
	partial := decodeStatus(t, `{"print":{"command":"push_status","mc_percent":13}}`)

	merged, err := partial.Merge(base)
	require.NoError(t, err)
	assert.Equal(t, StatePause, merged.GcodeState)
	assert.Equal(t, "3", merged.TaskID.String())
	assert.Equal(t, 13, merged.MCPercent)
}

func TestPushStatus_MergeWithoutBase(t *testing.T) {
	partial := decodeStatus(t, `{"print":{"command":"push_status","mc_percent":13}}`)

	merged, err := partial.Merge(nil)
	require.NoError(t, err)
	assert.Same(t, partial, merged)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{name: "not json", payload: `{"print":`, want: ErrMalformed},
		{name: "array", payload: `[1,2]`, want: ErrMalformed},
		{name: "null", payload: `null`, want: ErrMalformed},
		{name: "empty object", payload: `{}`, want: ErrNoDiscriminator},
		{name: "several unknown keys", payload: `{"a":{},"b":{}}`, want: ErrNoDiscriminator},
		{name: "inner not object", payload: `{"print":"push_status"}`, want: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_Discriminator(t *testing.T) {
	msg, err := Decode([]byte(`{"user_id":"1","print":{"command":"resume","result":"SUCCESS"}}`))
	require.NoError(t, err)
	assert.Equal(t, CategoryPrint, msg.Category)

	msg, err = Decode([]byte(`{"upgrade":{"command":"consistency_confirm"}}`))
	require.NoError(t, err)
	assert.Equal(t, Category("upgrade"), msg.Category)
	assert.False(t, msg.Known())
	assert.Equal(t, KindUnknown, msg.Kind())
}

func TestMessage_Kind(t *testing.T) {
	tests := []struct {
		category Category
		command  string
		want     Kind
	}{
		{CategoryInfo, "get_version", KindGetVersion},
		{CategoryInfo, "something_else", KindUnknown},
		{CategoryPrint, "push_status", KindPushStatus},
		{CategoryPrint, "resume", KindPrintResult},
		{CategoryPrint, "gcode_line", KindPrintResult},
		{CategoryPrint, "gcode_file", KindPrintResult},
		{CategoryPrint, "project_file", KindPrintResult},
		{CategoryPrint, "print_speed", KindUnknown},
		{CategoryMCPrint, "push_info", KindPushInfo},
		{Category("pushing"), "pushall", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.category)+"/"+tt.command, func(t *testing.T) {
			m := &Message{Category: tt.category, Command: tt.command}
			assert.Equal(t, tt.want, m.Kind())
		})
	}
}

func TestMessage_NarrowWrongCommand(t *testing.T) {
	msg, err := Decode([]byte(`{"info":{"command":"get_version","module":[]}}`))
	require.NoError(t, err)

	_, err = msg.PushStatus()
	assert.ErrorIs(t, err, ErrWrongCommand)
	_, err = msg.PushInfo()
	assert.ErrorIs(t, err, ErrWrongCommand)
}

func TestMessage_GetVersion(t *testing.T) {
	msg, err := Decode([]byte(`{"info":{"command":"get_version","sequence_id":"20004","module":[
		{"name":"ota","sn":"01S00A000000000","hw_ver":"","sw_ver":"01.05.00.00"},
		{"name":"mc","sn":"","hw_ver":"MC07","sw_ver":"00.00.19.15"}]}}`))
	require.NoError(t, err)

	v, err := msg.GetVersion()
	require.NoError(t, err)
	require.Len(t, v.Module, 2)
	assert.Equal(t, "ota", v.Module[0].Name)
	assert.Equal(t, "01.05.00.00", v.Module[0].SWVer)
	assert.Equal(t, "MC07", v.Module[1].HWVer)
}

func TestMessage_PrintResult(t *testing.T) {
	msg, err := Decode([]byte(`{"print":{"command":"project_file","param":"Metadata/plate_1.gcode","result":"SUCCESS","subtask_name":"benchy.3mf"}}`))
	require.NoError(t, err)

	r, err := msg.PrintResult()
	require.NoError(t, err)
	assert.True(t, r.Succeeded())
	assert.Equal(t, "benchy.3mf", r.SubtaskName)
}

func TestText_UnmarshalJSON(t *testing.T) {
	var v struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
		D Text `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":25.3,"c":null}`), &v))

	assert.Equal(t, 12, v.A.Int())
	assert.Equal(t, "25.3", v.B.String())
	assert.Equal(t, 25, v.B.Int())
	assert.InDelta(t, 25.3, v.B.Float(), 0.0001)
	assert.Equal(t, "", v.C.String())
	assert.Equal(t, 0, v.D.Int())
	assert.Equal(t, 0, Text("n/a").Int())
}
