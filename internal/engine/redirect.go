package engine

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SafeTarget returns the Referer of the request when it points to the same
// host over http(s), and fallback otherwise.
func SafeTarget(c *fiber.Ctx, fallback string) string {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fallback
	}
	if u.Host == "" || !strings.EqualFold(u.Host, c.Hostname()) {
		return fallback
	}
	return u.String()
}

// SafeRedirect redirects to the same-host Referer or to fallback.
func SafeRedirect(c *fiber.Ctx, fallback string) error {
	return c.Redirect(SafeTarget(c, fallback), fiber.StatusFound)
}

// SafeNext validates a client-supplied return path. Only local absolute
// paths are accepted.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

// LoginRedirect sends the principal to loginURL with the current path as
// the return target.
func LoginRedirect(c *fiber.Ctx, loginURL string) error {
	target := loginURL
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	target += sep + "next=" + url.QueryEscape(c.OriginalURL())
	return c.Redirect(target, fiber.StatusFound)
}
