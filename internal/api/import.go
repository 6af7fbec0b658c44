package api

import (
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	errBadFeedURL      = errors.New("invalid feed URL")
	errForbiddenTarget = errors.New("internal network access forbidden")
)

// handleTriggerImport runs the external feed import synchronously and
// returns its result. Without a url param the configured default feed is
// used; a caller-supplied url is validated against internal addresses
// first.
func (s *Server) handleTriggerImport(c echo.Context) error {
	urlStr := strings.TrimSpace(c.QueryParam("url"))
	if urlStr == "" {
		urlStr = s.Importer.DefaultURL()
	} else if err := validateFeedURL(urlStr); err != nil {
		if err == errForbiddenTarget {
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if !s.importMu.TryLock() {
		return c.JSON(http.StatusConflict, map[string]string{"error": "An import is already running"})
	}
	defer s.importMu.Unlock()

	ctx := c.Request().Context()

	runID, err := s.Store.RecordImportRun(ctx, urlStr)
	if err != nil {
		log.Printf("[import] failed to record run: %v", err)
	}

	result := s.Importer.Run(ctx, urlStr)

	if runID != uuid.Nil {
		// Per-record errors still count as a completed run; only a
		// whole-run failure (fetch, parse, final commit) is "failed".
		status := "completed"
		if result.Failed {
			status = "failed"
		}
		if err := s.Store.FinishImportRun(ctx, runID, status, result.Imported, result.Skipped, len(result.Errors)); err != nil {
			log.Printf("[import] failed to finish run %s: %v", runID, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Import complete",
		"url":     urlStr,
		"result":  result,
	})
}

func (s *Server) handleListImportRuns(c echo.Context) error {
	limit := 20
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	runs, err := s.Store.ListImportRuns(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, runs)
}

// validateFeedURL rejects URLs that point at internal networks.
func validateFeedURL(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errBadFeedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errBadFeedURL
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".local") {
		return errForbiddenTarget
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return errors.New("unable to resolve URL host")
	}
	if len(ips) == 0 {
		return errors.New("URL host resolved to no addresses")
	}
	for _, ip := range ips {
		if isPrivateOrSpecialIP(ip) {
			return errForbiddenTarget
		}
	}

	return nil
}

func isPrivateOrSpecialIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		if ip4[0] == 100 && ip4[1]&0xC0 == 64 {
			return true
		}
		if ip4[0] == 169 && ip4[1] == 254 {
			return true
		}
	}

	return false
}
