package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// AllowedImageHosts are the only hosts banner, avatar and screenshot URLs may
// point at. Matching is on the exact hostname.
var AllowedImageHosts = []string{
	"images.pexels.com",
	"api.dicebear.com",
	"files.yande.re",
	"konachan.com",
}

// ValidateImageURL checks that raw is an http(s) URL on an allowed host.
func ValidateImageURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid image URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("image URL must use http or https")
	}

	host := strings.ToLower(u.Hostname())
	for _, allowed := range AllowedImageHosts {
		if host == allowed {
			return nil
		}
	}
	return fmt.Errorf("image host %q is not allowed; allowed hosts: %s", host, strings.Join(AllowedImageHosts, ", "))
}
