// Package location resolves free-text place mentions to Singapore regions.
//
// It holds the single shared area dictionary used by both the resolver and
// the emergency detector. Matching is case-insensitive substring search with
// longest-match-wins ordering so that "jurong east" beats "jurong".
package location

import (
	"fmt"
	"sort"
	"strings"

	"github.com/carecover/carecover/internal/models"
)

// Info is a resolved location: coarse region plus the matched area name.
type Info struct {
	Region models.Region `json:"region"`
	Area   string        `json:"area"`
}

// areaDictionary maps lowercased Singapore area names to their region and
// display name.
var areaDictionary = map[string]Info{
	// East Region
	"east coast park": {Region: models.RegionEast, Area: "East Coast Park"},
	"bedok":           {Region: models.RegionEast, Area: "Bedok"},
	"tampines":        {Region: models.RegionEast, Area: "Tampines"},
	"pasir ris":       {Region: models.RegionEast, Area: "Pasir Ris"},
	"changi":          {Region: models.RegionEast, Area: "Changi"},
	"marine parade":   {Region: models.RegionEast, Area: "Marine Parade"},
	"katong":          {Region: models.RegionEast, Area: "Katong"},
	"joo chiat":       {Region: models.RegionEast, Area: "Joo Chiat"},

	// West Region
	"jurong":        {Region: models.RegionWest, Area: "Jurong"},
	"jurong east":   {Region: models.RegionWest, Area: "Jurong East"},
	"jurong west":   {Region: models.RegionWest, Area: "Jurong West"},
	"clementi":      {Region: models.RegionWest, Area: "Clementi"},
	"bukit batok":   {Region: models.RegionWest, Area: "Bukit Batok"},
	"bukit panjang": {Region: models.RegionWest, Area: "Bukit Panjang"},
	"choa chu kang": {Region: models.RegionWest, Area: "Choa Chu Kang"},
	"boon lay":      {Region: models.RegionWest, Area: "Boon Lay"},
	"pioneer":       {Region: models.RegionWest, Area: "Pioneer"},
	"tuas":          {Region: models.RegionWest, Area: "Tuas"},

	// North Region
	"woodlands":  {Region: models.RegionNorth, Area: "Woodlands"},
	"sembawang":  {Region: models.RegionNorth, Area: "Sembawang"},
	"yishun":     {Region: models.RegionNorth, Area: "Yishun"},
	"ang mo kio": {Region: models.RegionNorth, Area: "Ang Mo Kio"},
	"bishan":     {Region: models.RegionNorth, Area: "Bishan"},
	"toa payoh":  {Region: models.RegionNorth, Area: "Toa Payoh"},
	"serangoon":  {Region: models.RegionNorth, Area: "Serangoon"},
	"punggol":    {Region: models.RegionNorth, Area: "Punggol"},
	"sengkang":   {Region: models.RegionNorth, Area: "Sengkang"},
	"hougang":    {Region: models.RegionNorth, Area: "Hougang"},

	// South Region
	"sentosa":       {Region: models.RegionSouth, Area: "Sentosa"},
	"harbourfront":  {Region: models.RegionSouth, Area: "Harbourfront"},
	"telok blangah": {Region: models.RegionSouth, Area: "Telok Blangah"},
	"alexandra":     {Region: models.RegionSouth, Area: "Alexandra"},
	"queenstown":    {Region: models.RegionSouth, Area: "Queenstown"},
	"redhill":       {Region: models.RegionSouth, Area: "Redhill"},
	"tiong bahru":   {Region: models.RegionSouth, Area: "Tiong Bahru"},
	"mount faber":   {Region: models.RegionSouth, Area: "Mount Faber"},

	// Central Region
	"orchard":        {Region: models.RegionCentral, Area: "Orchard"},
	"marina bay":     {Region: models.RegionCentral, Area: "Marina Bay"},
	"raffles place":  {Region: models.RegionCentral, Area: "Raffles Place"},
	"city hall":      {Region: models.RegionCentral, Area: "City Hall"},
	"bugis":          {Region: models.RegionCentral, Area: "Bugis"},
	"little india":   {Region: models.RegionCentral, Area: "Little India"},
	"chinatown":      {Region: models.RegionCentral, Area: "Chinatown"},
	"clarke quay":    {Region: models.RegionCentral, Area: "Clarke Quay"},
	"robertson quay": {Region: models.RegionCentral, Area: "Robertson Quay"},
	"novena":         {Region: models.RegionCentral, Area: "Novena"},
	"newton":         {Region: models.RegionCentral, Area: "Newton"},
	"dhoby ghaut":    {Region: models.RegionCentral, Area: "Dhoby Ghaut"},
	"somerset":       {Region: models.RegionCentral, Area: "Somerset"},
	"outram":         {Region: models.RegionCentral, Area: "Outram"},
	"tanjong pagar":  {Region: models.RegionCentral, Area: "Tanjong Pagar"},
	"lavender":       {Region: models.RegionCentral, Area: "Lavender"},
	"kallang":        {Region: models.RegionCentral, Area: "Kallang"},
	"geylang":        {Region: models.RegionCentral, Area: "Geylang"},
	"aljunied":       {Region: models.RegionCentral, Area: "Aljunied"},
	"paya lebar":     {Region: models.RegionCentral, Area: "Paya Lebar"},
	"eunos":          {Region: models.RegionCentral, Area: "Eunos"},
	"kembangan":      {Region: models.RegionCentral, Area: "Kembangan"},
	"simei":          {Region: models.RegionCentral, Area: "Simei"},
}

// orderedAreas is the dictionary keys sorted longest-first (ties broken
// alphabetically) so that substring matching is deterministic and the most
// specific area wins.
var orderedAreas = buildOrderedAreas()

func buildOrderedAreas() []string {
	keys := make([]string, 0, len(areaDictionary))
	for k := range areaDictionary {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// regionSynonym pairs a fallback pattern with the region it implies.
// Order matters: evaluated top-down after the area dictionary misses.
type regionSynonym struct {
	pattern string
	region  models.Region
}

var regionSynonyms = []regionSynonym{
	{"east", models.RegionEast},
	{"eastern", models.RegionEast},
	{"west", models.RegionWest},
	{"western", models.RegionWest},
	{"north", models.RegionNorth},
	{"northern", models.RegionNorth},
	{"south", models.RegionSouth},
	{"southern", models.RegionSouth},
	{"central", models.RegionCentral},
	{"downtown", models.RegionCentral},
	{"cbd", models.RegionCentral},
	{"city", models.RegionCentral},
}

// Resolve maps a free-text location mention to a region and area. Named areas
// are checked first (longest match wins); if none matches, region-name
// synonyms are tried. Returns false if nothing matches.
func Resolve(text string) (Info, bool) {
	lower := strings.ToLower(text)

	for _, area := range orderedAreas {
		if strings.Contains(lower, area) {
			return areaDictionary[area], true
		}
	}

	for _, syn := range regionSynonyms {
		if strings.Contains(lower, syn.pattern) {
			return Info{Region: syn.region, Area: syn.pattern + " region"}, true
		}
	}

	return Info{}, false
}

// AreaNames returns the shared area dictionary keys, longest-first. The
// emergency detector uses this list so location extraction and region
// resolution never drift apart.
func AreaNames() []string {
	names := make([]string, len(orderedAreas))
	copy(names, orderedAreas)
	return names
}

// FormatForDisplay renders a resolved location as "Area (Region Region)".
func FormatForDisplay(info Info) string {
	region := string(info.Region)
	if region != "" {
		region = strings.ToUpper(region[:1]) + region[1:]
	}
	return fmt.Sprintf("%s (%s Region)", info.Area, region)
}

// crossRegionDistances holds rough estimates between non-adjacent regions,
// keyed by the two region names sorted alphabetically and joined with "-".
var crossRegionDistances = map[string]string{
	"central-east": "5-15 km",
	"east-west":    "15-25 km",
	"east-north":   "10-20 km",
	"east-south":   "5-15 km",
	"north-west":   "10-20 km",
	"south-west":   "15-25 km",
	"central-west": "10-20 km",
	"north-south":  "15-25 km",
	"central-north": "5-15 km",
	"central-south": "5-15 km",
}

// DistanceEstimate gives a coarse travel-distance string from a free-text
// location to a facility, based only on their regions.
func DistanceEstimate(fromText string, facility models.Facility) string {
	from, ok := Resolve(fromText)
	if !ok {
		return "Distance unknown"
	}

	if from.Region == facility.Region {
		return "Nearby (same region)"
	}

	pair := []string{string(from.Region), string(facility.Region)}
	sort.Strings(pair)
	if dist, ok := crossRegionDistances[pair[0]+"-"+pair[1]]; ok {
		return dist
	}
	return "10-20 km"
}
