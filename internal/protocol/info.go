package protocol

// GetVersion is the info/get_version reply listing the device modules.
type GetVersion struct {
	Command    string   `json:"command"`
	SequenceID Text     `json:"sequence_id"`
	Module     []Module `json:"module"`
}

// Module is one hardware module of the printer.
type Module struct {
	Name  string `json:"name"`
	SN    string `json:"sn"`
	HWVer string `json:"hw_ver"`
	SWVer string `json:"sw_ver"`
}

// PrintResult is the acknowledgement shape shared by resume, gcode_line,
// gcode_file and project_file replies.
type PrintResult struct {
	Command     string `json:"command"`
	SequenceID  Text   `json:"sequence_id"`
	Param       string `json:"param"`
	Reason      string `json:"reason"`
	Result      string `json:"result"`
	ReturnCode  Text   `json:"return_code"`
	SubtaskName string `json:"subtask_name"`
}

// Succeeded reports whether the device accepted the command.
func (r *PrintResult) Succeeded() bool {
	return r.Result == "SUCCESS"
}
