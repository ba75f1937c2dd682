package zoho

// dataCenterURLs maps a data-center code to its API origin.
var dataCenterURLs = map[string]string{
	"US": "https://www.zohoapis.com",
	"EU": "https://www.zohoapis.eu",
	"AU": "https://www.zohoapis.com.au",
	"IN": "https://www.zohoapis.in",
	"CN": "https://www.zohoapis.com.cn",
	"JP": "https://www.zohoapis.jp",
}

// DataCenterURL resolves a data-center code ("AU", "US", ...) to the API
// origin. Unknown codes fall back to the US origin.
func DataCenterURL(code string) string {
	if u, ok := dataCenterURLs[code]; ok {
		return u
	}
	return dataCenterURLs["US"]
}
