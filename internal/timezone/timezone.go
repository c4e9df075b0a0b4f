// Package timezone annotates flight segments with the IANA timezone of
// their airports. Unknown airports fall back to UTC rather than failing a
// search.
package timezone

import "time"

var airportTimezones = map[string]string{
	// North America
	"JFK": "America/New_York",
	"LGA": "America/New_York",
	"EWR": "America/New_York",
	"BOS": "America/New_York",
	"ATL": "America/New_York",
	"DTW": "America/Detroit",
	"MSP": "America/Chicago",
	"ORD": "America/Chicago",
	"DFW": "America/Chicago",
	"SLC": "America/Denver",
	"DEN": "America/Denver",
	"LAX": "America/Los_Angeles",
	"SFO": "America/Los_Angeles",
	"SEA": "America/Los_Angeles",
	"YYZ": "America/Toronto",
	"YVR": "America/Vancouver",
	"MEX": "America/Mexico_City",

	// Europe
	"LHR": "Europe/London",
	"LGW": "Europe/London",
	"MAN": "Europe/London",
	"EDI": "Europe/London",
	"CDG": "Europe/Paris",
	"AMS": "Europe/Amsterdam",
	"FRA": "Europe/Berlin",
	"MUC": "Europe/Berlin",
	"ZRH": "Europe/Zurich",
	"MAD": "Europe/Madrid",
	"BCN": "Europe/Madrid",
	"FCO": "Europe/Rome",
	"MXP": "Europe/Rome",
	"DUB": "Europe/Dublin",
	"CPH": "Europe/Copenhagen",
	"ARN": "Europe/Stockholm",

	// Middle East / Asia / Pacific
	"DXB": "Asia/Dubai",
	"DOH": "Asia/Qatar",
	"DEL": "Asia/Kolkata",
	"BOM": "Asia/Kolkata",
	"SIN": "Asia/Singapore",
	"HKG": "Asia/Hong_Kong",
	"NRT": "Asia/Tokyo",
	"HND": "Asia/Tokyo",
	"ICN": "Asia/Seoul",
	"PVG": "Asia/Shanghai",
	"SYD": "Australia/Sydney",
	"MEL": "Australia/Melbourne",
	"AKL": "Pacific/Auckland",

	// South America / Africa
	"GRU": "America/Sao_Paulo",
	"EZE": "America/Argentina/Buenos_Aires",
	"JNB": "Africa/Johannesburg",
	"CPT": "Africa/Johannesburg",
	"LOS": "Africa/Lagos",
}

// ByAirport returns the IANA timezone name for an airport code, or "UTC"
// when the airport is not in the table.
func ByAirport(code string) string {
	if tz, ok := airportTimezones[code]; ok {
		return tz
	}
	return "UTC"
}

// LocationByAirport loads the location for an airport, falling back to UTC
// on unknown airports or missing tzdata.
func LocationByAirport(code string) *time.Location {
	loc, err := time.LoadLocation(ByAirport(code))
	if err != nil {
		return time.UTC
	}
	return loc
}

// ToAirportTime renders a time in the local clock of an airport.
func ToAirportTime(t time.Time, code string) time.Time {
	return t.In(LocationByAirport(code))
}
