package probe

import (
	"regexp"
	"strings"
)

var reValue = regexp.MustCompile(`: (.*)`)

func lines(out string) []string {
	ls := strings.Split(out, "\n")
	for i, l := range ls {
		ls[i] = strings.TrimRight(l, "\r")
	}
	return ls
}

// parseIwgetid: `iwgetid -r` prints the bare SSID.
func parseIwgetid(out string) string {
	for _, l := range lines(out) {
		if l != "" {
			return l
		}
	}
	return ""
}

// parseAirport: `airport -I` prints "     SSID: name" among other keys.
func parseAirport(out string) string {
	return firstValue(out, " SSID: ")
}

// parseNetsh: `netsh wlan show interfaces` prints "    SSID   : name".
// The BSSID line does not match because the signature needs a leading space.
func parseNetsh(out string) string {
	return firstValue(out, " SSID ")
}

func firstValue(out, signature string) string {
	for _, l := range lines(out) {
		if !strings.Contains(l, signature) {
			continue
		}
		if m := reValue.FindStringSubmatch(l); m != nil {
			return m[1]
		}
	}
	return ""
}
