package social

import (
	"strings"

	"reach_server/core/domain"
)

// platformCodes are the cid values the community endpoint expects.
var platformCodes = map[domain.Platform]string{
	domain.PlatformInstagram: "INST",
	domain.PlatformTwitter:   "TW",
}

var platformDomains = map[domain.Platform]string{
	domain.PlatformInstagram: "instagram.com",
	domain.PlatformTwitter:   "twitter.com",
	domain.PlatformTikTok:    "tiktok.com",
	domain.PlatformFacebook:  "facebook.com",
}

// ExtractUsername reduces a username or profile URL to a bare username.
//
//	"https://www.instagram.com/jane.doe/?hl=en" -> "jane.doe"
//	"tiktok.com/@jane"                          -> "jane"
//	"@jane"                                     -> "jane"
func ExtractUsername(identifier string) string {
	s := strings.TrimSpace(identifier)

	hadScheme := false
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		hadScheme = true
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "/")

	segments := strings.Split(s, "/")
	if len(segments) > 1 && (hadScheme || strings.Contains(segments[0], ".")) {
		segments = segments[1:]
	} else if len(segments) == 1 && (hadScheme || isPlatformHost(segments[0])) {
		// bare host, no path
		return ""
	}

	username := ""
	for _, seg := range segments {
		if seg != "" {
			username = seg
			break
		}
	}
	return strings.TrimPrefix(username, "@")
}

func isPlatformHost(s string) bool {
	host := strings.TrimPrefix(strings.ToLower(s), "www.")
	if host == "x.com" {
		return true
	}
	for _, d := range platformDomains {
		if host == d {
			return true
		}
	}
	return false
}

// Candidates returns the identifier formats tried against the community
// endpoint, in order. Duplicates are removed.
func Candidates(platform domain.Platform, username string) []string {
	if username == "" {
		return nil
	}
	host := platformDomains[platform]
	raw := []string{
		username,
		platformCodes[platform] + ":" + username,
		host + "/" + username,
		"https://" + host + "/" + username,
		"https://www." + host + "/" + username + "/",
		"www." + host + "/" + username,
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
