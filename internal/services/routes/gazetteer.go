package routes

// City это точка справочника. Key ищется подстрокой в свободном тексте.
type City struct {
	Key   string
	Lat   float64
	Lng   float64
	Label string
}

// Порядок значим: при неоднозначном тексте побеждает первый найденный город.
var gazetteer = []City{
	{"new york", 40.7128, -74.0060, "New York, USA"},
	{"los angeles", 34.0522, -118.2437, "Los Angeles, USA"},
	{"miami", 25.7617, -80.1918, "Miami, USA"},
	{"houston", 29.7604, -95.3698, "Houston, USA"},
	{"chicago", 41.8781, -87.6298, "Chicago, USA"},
	{"toronto", 43.6532, -79.3832, "Toronto, Canada"},
	{"vancouver", 49.2827, -123.1207, "Vancouver, Canada"},
	{"mexico city", 19.4326, -99.1332, "Mexico City, Mexico"},

	{"sao paulo", -23.5505, -46.6333, "São Paulo, Brazil"},
	{"rio de janeiro", -22.9068, -43.1729, "Rio de Janeiro, Brazil"},
	{"buenos aires", -34.6037, -58.3816, "Buenos Aires, Argentina"},
	{"bogota", 4.7110, -74.0721, "Bogotá, Colombia"},
	{"lima", -12.0464, -77.0428, "Lima, Peru"},
	{"santiago", -33.4489, -70.6693, "Santiago, Chile"},

	{"london", 51.5074, -0.1278, "London, UK"},
	{"paris", 48.8566, 2.3522, "Paris, France"},
	{"madrid", 40.4168, -3.7038, "Madrid, Spain"},
	{"rome", 41.9028, 12.4964, "Rome, Italy"},
	{"berlin", 52.5200, 13.4050, "Berlin, Germany"},
	{"amsterdam", 52.3676, 4.9041, "Amsterdam, Netherlands"},

	{"dubai", 25.2048, 55.2708, "Dubai, UAE"},
	{"tokyo", 35.6762, 139.6503, "Tokyo, Japan"},
	{"seoul", 37.5665, 126.9780, "Seoul, South Korea"},
	{"singapore", 1.3521, 103.8198, "Singapore"},
	{"hong kong", 22.3193, 114.1694, "Hong Kong"},
	{"delhi", 28.6139, 77.2090, "Delhi, India"},
}
