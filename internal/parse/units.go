package parse

import (
	"regexp"
	"strconv"
	"strings"

	"geoquery/internal/errs"
)

type unit struct {
	canonical string
	factor    float64
}

var distanceUnits = map[string]unit{
	"m": {"m", 1}, "meter": {"m", 1}, "meters": {"m", 1}, "metre": {"m", 1}, "metres": {"m", 1},
	"km": {"km", 1000}, "kms": {"km", 1000}, "kilometer": {"km", 1000}, "kilometers": {"km", 1000},
	"kilometre": {"km", 1000}, "kilometres": {"km", 1000},
	"mi": {"mi", 1609.344}, "mile": {"mi", 1609.344}, "miles": {"mi", 1609.344},
	"ft": {"ft", 0.3048}, "foot": {"ft", 0.3048}, "feet": {"ft", 0.3048},
	"yd": {"yd", 0.9144}, "yard": {"yd", 0.9144}, "yards": {"yd", 0.9144},
}

var durationUnits = map[string]unit{
	"s": {"s", 1}, "sec": {"s", 1}, "secs": {"s", 1}, "second": {"s", 1}, "seconds": {"s", 1},
	"min": {"min", 60}, "mins": {"min", 60}, "minute": {"min", 60}, "minutes": {"min", 60},
	"h": {"h", 3600}, "hr": {"h", 3600}, "hrs": {"h", 3600}, "hour": {"h", 3600}, "hours": {"h", 3600},
}

var quantityRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*-?\s*([A-Za-z]+)\s*$`)

func splitQuantity(s string) (float64, string, bool) {
	m := quantityRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return v, strings.ToLower(m[2]), true
}

// ParseDistance："500m"、"25 mi"、"1.5 kilometers" → 米
// 约束：缺少或无法识别的单位一律报 query_parse，不做默认单位推断
func ParseDistance(s string) (Distance, error) {
	v, u, ok := splitQuantity(s)
	if !ok {
		return Distance{}, errs.New(errs.KindQueryParse, "cannot read a distance from %q", s)
	}
	du, ok := distanceUnits[u]
	if !ok {
		return Distance{}, errs.New(errs.KindQueryParse, "unknown distance unit %q in %q", u, s)
	}
	return Distance{Magnitude: v, Unit: du.canonical, Meters: v * du.factor}, nil
}

// ParseDuration："20 minutes"、"1h" → 秒
func ParseDuration(s string) (Duration, error) {
	v, u, ok := splitQuantity(s)
	if !ok {
		return Duration{}, errs.New(errs.KindQueryParse, "cannot read a duration from %q", s)
	}
	tu, ok := durationUnits[u]
	if !ok {
		return Duration{}, errs.New(errs.KindQueryParse, "unknown duration unit %q in %q", u, s)
	}
	return Duration{Magnitude: v, Unit: tu.canonical, Seconds: v * tu.factor}, nil
}

// IsDuration：判断数量词是否为时长（用于拒绝时间约束）
func IsDuration(s string) bool {
	_, u, ok := splitQuantity(s)
	if !ok {
		return false
	}
	_, ok = durationUnits[u]
	return ok
}

func isDistanceUnit(w string) bool {
	_, ok := distanceUnits[w]
	return ok
}

func isDurationUnit(w string) bool {
	_, ok := durationUnits[w]
	return ok
}

// 出行方式同义词
var methodWords = map[string]string{
	"drive": "drive", "driving": "drive", "car": "drive", "drives": "drive",
	"walk": "walk", "walking": "walk", "walks": "walk", "foot": "walk", "walkable": "walk",
	"bike": "bike", "biking": "bike", "cycle": "bike", "cycling": "bike", "bicycle": "bike",
}
