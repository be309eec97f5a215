package format

import "strconv"

var sizeUnits = []string{"KiB", "MiB", "GiB", "TiB"}

// Size renders a byte count with binary units, e.g. "1.5 MiB".
func Size(n int64) string {
	if n < 1024 {
		if n < 0 {
			n = 0
		}
		return strconv.FormatInt(n, 10) + " B"
	}
	v := float64(n) / 1024
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " " + sizeUnits[i]
}
