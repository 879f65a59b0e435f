package artwork

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// {artist}-{typeCode}-{year}-{serial}, e.g. bt-pt-25-001
var uidPattern = regexp.MustCompile(`^([A-Za-z0-9]+)-([A-Za-z0-9]+)-(\d{2}|\d{4})-(\d{1,6})$`)

func ValidUID(uid string) bool {
	return uidPattern.MatchString(uid)
}

// UIDPrefix builds the "{artist}-{typeCode}-{yy}" part shared by every serial of a series.
func UIDPrefix(artist, typeCode string, year int) (string, bool) {
	a := slug(artist)
	t := slug(typeCode)
	if a == "" || t == "" {
		return "", false
	}
	return fmt.Sprintf("%s-%s-%02d", a, t, year%100), true
}

func FormatUID(prefix string, serial int) string {
	return fmt.Sprintf("%s-%03d", prefix, serial)
}

// SerialOf returns the numeric serial of uid if it belongs to prefix.
func SerialOf(uid, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(uid, prefix+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
