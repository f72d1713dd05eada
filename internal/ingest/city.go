package ingest

import (
	"sort"
	"strings"
)

// popularCities maps the Russian names users type to the names the provider
// resolves reliably.
var popularCities = map[string]string{
	"москва":          "Moscow",
	"санкт-петербург": "Saint Petersburg",
	"новосибирск":     "Novosibirsk",
	"екатеринбург":    "Yekaterinburg",
	"казань":          "Kazan",
	"нижний новгород": "Nizhny Novgorod",
	"челябинск":       "Chelyabinsk",
	"самара":          "Samara",
	"омск":            "Omsk",
	"ростов-на-дону":  "Rostov-on-Don",
	"уфа":             "Ufa",
	"красноярск":      "Krasnoyarsk",
	"воронеж":         "Voronezh",
	"пермь":           "Perm",
	"волгоград":       "Volgograd",
}

var cityAliases = map[string]string{
	"спб":            "Saint Petersburg",
	"питер":          "Saint Petersburg",
	"мск":            "Moscow",
	"st. petersburg": "Saint Petersburg",
}

// NormalizeCity trims and collapses whitespace and maps known Russian names
// and aliases to provider names. Unknown names pass through unchanged.
func NormalizeCity(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	key := strings.ToLower(name)
	if v, ok := popularCities[key]; ok {
		return v
	}
	if v, ok := cityAliases[key]; ok {
		return v
	}
	return name
}

// PopularCities returns the provider names of the popular cities, sorted.
func PopularCities() []string {
	out := make([]string, 0, len(popularCities))
	for _, v := range popularCities {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
