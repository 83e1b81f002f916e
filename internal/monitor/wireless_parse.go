package monitor

import (
	"regexp"
	"strconv"
	"strings"
)

// Patterns for the `Key : Value` layout produced by `netsh wlan show
// interfaces`. Anchoring on the line start keeps BSSID from matching the
// "Physical address" line and SSID from matching the BSSID line.
const (
	bssidLinePattern   = `(?im)^\s*BSSID\s*:\s*((?:[0-9a-f]{2}[:-]){5}[0-9a-f]{2})\s*$`
	ssidLinePattern    = `(?im)^\s*SSID\s*:\s*(.+?)\s*$`
	signalLinePattern  = `(?im)^\s*Signal\s*:\s*(\d{1,3})\s*%`
	channelLinePattern = `(?im)^\s*Channel\s*:\s*(\d+)\s*$`
	radioLinePattern   = `(?im)^\s*Radio type\s*:\s*(.+?)\s*$`
	bandLinePattern    = `(?im)^\s*Band\s*:\s*(.+?)\s*$`
)

var (
	bssidLineRe   = regexp.MustCompile(bssidLinePattern)
	ssidLineRe    = regexp.MustCompile(ssidLinePattern)
	signalLineRe  = regexp.MustCompile(signalLinePattern)
	channelLineRe = regexp.MustCompile(channelLinePattern)
	radioLineRe   = regexp.MustCompile(radioLinePattern)
	bandLineRe    = regexp.MustCompile(bandLinePattern)
)

// wirelessReading is one parsed poll result. Fields default independently:
// a line that is missing or malformed leaves its field empty/zero without
// affecting the others.
type wirelessReading struct {
	BSSID   string
	SSID    string
	Band    string
	Signal  int
	Channel int
	Radio   string
}

func parseWireless(output string) wirelessReading {
	var r wirelessReading

	if m := bssidLineRe.FindStringSubmatch(output); m != nil {
		r.BSSID = strings.ToLower(strings.ReplaceAll(m[1], "-", ":"))
	}
	if m := ssidLineRe.FindStringSubmatch(output); m != nil {
		r.SSID = m[1]
	}
	if m := signalLineRe.FindStringSubmatch(output); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			r.Signal = clampPercent(v)
		}
	}
	if m := channelLineRe.FindStringSubmatch(output); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			r.Channel = v
		}
	}
	if m := radioLineRe.FindStringSubmatch(output); m != nil {
		r.Radio = m[1]
	}
	if m := bandLineRe.FindStringSubmatch(output); m != nil {
		r.Band = m[1]
	} else if r.Channel > 0 {
		r.Band = bandFromChannel(r.Channel)
	}
	return r
}

// bandFromChannel derives the radio band when the output has no explicit
// Band line. 6 GHz capable stacks always print one, so only 2.4 and 5 GHz
// need deriving.
func bandFromChannel(channel int) string {
	if channel <= 14 {
		return "2.4 GHz"
	}
	return "5 GHz"
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
