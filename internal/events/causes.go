package events

// hangupCauses maps the exchange's hangup cause codes to display text.
var hangupCauses = map[string]string{
	"16": "Normal hangup",
	"17": "Destination busy",
	"18": "No answer",
	"19": "No answer",
	"21": "Call rejected",
	"31": "Normal hangup",
	"34": "Circuits busy",
}

// CauseText translates a hangup cause code; unknown codes read as a normal
// hangup, matching what operators expect on the panel.
func CauseText(code string) string {
	if text, ok := hangupCauses[code]; ok {
		return text
	}
	return "Normal hangup"
}
