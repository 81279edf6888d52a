// Package geocoding resolves Indian city names to fixed coordinates used by
// order tracking. It is a lookup table, not a geocoding service.
package geocoding

import (
	"math"
	"sort"
	"strings"
)

// Coordinates is a latitude/longitude pair in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

const earthRadiusKm = 6371.0

var cities = map[string]Coordinates{
	"mumbai":             {19.0760, 72.8777},
	"delhi":              {28.7041, 77.1025},
	"new delhi":          {28.6139, 77.2090},
	"bengaluru":          {12.9716, 77.5946},
	"hyderabad":          {17.3850, 78.4867},
	"ahmedabad":          {23.0225, 72.5714},
	"chennai":            {13.0827, 80.2707},
	"kolkata":            {22.5726, 88.3639},
	"pune":               {18.5204, 73.8567},
	"jaipur":             {26.9124, 75.7873},
	"surat":              {21.1702, 72.8311},
	"lucknow":            {26.8467, 80.9462},
	"kanpur":             {26.4499, 80.3319},
	"nagpur":             {21.1458, 79.0882},
	"indore":             {22.7196, 75.8577},
	"bhopal":             {23.2599, 77.4126},
	"patna":              {25.5941, 85.1376},
	"vadodara":           {22.3072, 73.1812},
	"ludhiana":           {30.9010, 75.8573},
	"agra":               {27.1767, 78.0081},
	"varanasi":           {25.3176, 82.9739},
	"srinagar":           {34.0837, 74.7973},
	"amritsar":           {31.6340, 74.8723},
	"chandigarh":         {30.7333, 76.7794},
	"gurugram":           {28.4595, 77.0266},
	"noida":              {28.5355, 77.3910},
	"kochi":              {9.9312, 76.2673},
	"thiruvananthapuram": {8.5241, 76.9366},
	"coimbatore":         {11.0168, 76.9558},
	"madurai":            {9.9252, 78.1198},
	"mysuru":             {12.2958, 76.6394},
	"visakhapatnam":      {17.6868, 83.2185},
	"bhubaneswar":        {20.2961, 85.8245},
	"guwahati":           {26.1445, 91.7362},
	"udaipur":            {24.5854, 73.7125},
	"jodhpur":            {26.2389, 73.0243},
	"kutch":              {23.7337, 69.8597},
	"goa":                {15.2993, 74.1240},
	"dehradun":           {30.3165, 78.0322},
	"shimla":             {31.1048, 77.1734},
	"raipur":             {21.2514, 81.6296},
	"ranchi":             {23.3441, 85.3096},
	"moradabad":          {28.8386, 78.7733},
	"kanchipuram":        {12.8342, 79.7036},
	"imphal":             {24.8170, 93.9368},
}

var aliases = map[string]string{
	"bombay":          "mumbai",
	"bangalore":       "bengaluru",
	"calcutta":        "kolkata",
	"madras":          "chennai",
	"gurgaon":         "gurugram",
	"poona":           "pune",
	"baroda":          "vadodara",
	"benares":         "varanasi",
	"banaras":         "varanasi",
	"cochin":          "kochi",
	"trivandrum":      "thiruvananthapuram",
	"mysore":          "mysuru",
	"vizag":           "visakhapatnam",
	"panaji":          "goa",
	"bhuj":            "kutch",
	"ncr":             "delhi",
	"delhi ncr":       "delhi",
	"greater noida":   "noida",
	"conjeevaram":     "kanchipuram",
	"old delhi":       "delhi",
	"kanchi":          "kanchipuram",
	"pink city":       "jaipur",
	"city of lakes":   "udaipur",
	"navi mumbai":     "mumbai",
	"secunderabad":    "hyderabad",
	"new bombay":      "mumbai",
	"bengaluru urban": "bengaluru",
}

// Normalize lowercases and collapses whitespace, dropping a trailing
// ", state" or ", india" qualifier.
func Normalize(city string) string {
	city = strings.ToLower(strings.TrimSpace(city))
	if i := strings.Index(city, ","); i >= 0 {
		city = city[:i]
	}
	return strings.Join(strings.Fields(city), " ")
}

// Lookup returns the coordinates for a known city name or alias
func Lookup(city string) (Coordinates, bool) {
	key := Normalize(city)
	if key == "" {
		return Coordinates{}, false
	}
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	c, ok := cities[key]
	return c, ok
}

// LookupPtr is Lookup shaped for nullable model columns
func LookupPtr(city string) (lat, lng *float64) {
	c, ok := Lookup(city)
	if !ok {
		return nil, nil
	}
	return &c.Lat, &c.Lng
}

// Cities returns the canonical city names, sorted
func Cities() []string {
	names := make([]string, 0, len(cities))
	for name := range cities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DistanceKm is the great-circle distance between two points
func DistanceKm(a, b Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
