package oasf

import "strings"

// Locator type constants the registry emits.
const (
	LocatorBridge = "bridge-url"
	LocatorAPI    = "api-url"
	LocatorDocker = "docker-image"
)

// ClassifyLocators splits a locator list into the agent (bridge) URL and the
// API URL by case-insensitive substring match on the locator type:
// source/github types carry the agent URL, api/service types the API URL.
// When nothing matches, the first locator's URL is used as the agent URL.
func ClassifyLocators(locators []Locator) (agentURL, apiURL string) {
	for _, loc := range locators {
		t := strings.ToLower(loc.Type)
		switch {
		case strings.Contains(t, "source") || strings.Contains(t, "github") || strings.Contains(t, "bridge"):
			if agentURL == "" {
				agentURL = loc.URL
			}
		case strings.Contains(t, "api") || strings.Contains(t, "service"):
			if apiURL == "" {
				apiURL = loc.URL
			}
		}
	}
	if agentURL == "" && len(locators) > 0 {
		agentURL = locators[0].URL
	}
	return agentURL, apiURL
}

// PreferredLocator picks the registration URL for a record: a docker-image
// locator if present, otherwise the first locator. Returns "" when the list
// is empty.
func PreferredLocator(locators []Locator) string {
	for _, loc := range locators {
		if loc.Type == LocatorDocker {
			return loc.URL
		}
	}
	if len(locators) > 0 {
		return locators[0].URL
	}
	return ""
}
