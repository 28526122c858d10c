package util

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"
	cache "github.com/patrickmn/go-cache"
)

var (
	geoipDB        *geoip2.Reader
	geoipCache     *cache.Cache
	geoipCacheHits int64
	geoipCacheMiss int64
)

// IPLocation holds the resolved city and country for an IP address.
type IPLocation struct {
	City    string
	Country string
}

// DownloadRequest groups the parameters for downloading a GeoIP database.
type DownloadRequest struct {
	URL      string
	DestPath string
}

// InitGeoIP opens the GeoIP2 database at dbPath, falling back to the
// GEOIP_DB_PATH environment variable. When the file does not exist and
// GEOIP_DOWNLOAD_URL is set, the database is fetched first. Lookups stay
// disabled when no path is configured.
func InitGeoIP(dbPath string) error {
	if dbPath == "" {
		dbPath = os.Getenv("GEOIP_DB_PATH")
	}
	if dbPath == "" {
		return nil
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		if err := fetchGeoIPDatabase(dbPath); err != nil {
			return err
		}
	}

	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoipDB = r
	geoipCache = cache.New(24*time.Hour, time.Hour)
	return nil
}

// fetchGeoIPDatabase downloads the MMDB from GEOIP_DOWNLOAD_URL and verifies
// it opens before InitGeoIP commits to it.
func fetchGeoIPDatabase(destPath string) error {
	url := os.Getenv("GEOIP_DOWNLOAD_URL")
	if url == "" {
		return fmt.Errorf("geoip database %s does not exist and GEOIP_DOWNLOAD_URL is not set", destPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := DownloadGeoIPWithRequest(ctx, DownloadRequest{URL: url, DestPath: destPath}); err != nil {
		return fmt.Errorf("download geoip database: %w", err)
	}
	if err := ValidateGeoIP(destPath); err != nil {
		return fmt.Errorf("downloaded geoip database is invalid: %w", err)
	}
	return nil
}

// CloseGeoIP releases the database handle and logs how the lookup cache
// performed over the process lifetime.
func CloseGeoIP() {
	if geoipDB == nil {
		return
	}
	hits, misses, size := GetGeoIPCacheMetrics()
	if securityLogger != nil {
		securityLogger.Printf("GeoIP cache: %d hits, %d misses, %d entries", hits, misses, size)
	}
	_ = geoipDB.Close()
	geoipDB = nil
}

// DownloadGeoIPWithRequest fetches an MMDB file and writes it to
// req.DestPath. Sources ending in .gz are decompressed on the fly. Returns
// the final path written.
func DownloadGeoIPWithRequest(ctx context.Context, req DownloadRequest) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if strings.HasSuffix(req.URL, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", err
		}
		defer gz.Close()
		body = gz
	}
	if err := writeAtomically(req.DestPath, body); err != nil {
		return "", err
	}
	return req.DestPath, nil
}

// writeAtomically streams body into a temp file next to destPath and renames
// it into place, so a failed transfer never replaces a working database.
func writeAtomically(destPath string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), "geoip-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	renamed := false
	defer func() {
		_ = tmp.Close()
		if !renamed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return err
	}
	renamed = true
	return nil
}

// ValidateGeoIP checks that the file at path opens as an MMDB database.
func ValidateGeoIP(path string) error {
	r, err := geoip2.Open(path)
	if err != nil {
		return err
	}
	return r.Close()
}

// routableAddress reports whether the database could plausibly know the
// address. Loopback, private, link-local, and unspecified ranges are skipped
// without touching the cache.
func routableAddress(ip net.IP) bool {
	return !ip.IsLoopback() && !ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() && !ip.IsLinkLocalMulticast() &&
		!ip.IsUnspecified()
}

// GetIPLocation resolves the city and country for an IP address through the
// lookup cache and the local database. Unroutable and unknown addresses
// resolve to a zero IPLocation.
func GetIPLocation(ip string) IPLocation {
	parsed := net.ParseIP(ip)
	if parsed == nil || !routableAddress(parsed) {
		return IPLocation{}
	}

	if geoipCache != nil {
		if v, ok := geoipCache.Get(ip); ok {
			if loc, ok := v.(IPLocation); ok {
				atomic.AddInt64(&geoipCacheHits, 1)
				return loc
			}
		}
	}
	atomic.AddInt64(&geoipCacheMiss, 1)

	if geoipDB == nil {
		return IPLocation{}
	}
	rec, err := geoipDB.City(parsed)
	if err != nil {
		return IPLocation{}
	}

	loc := IPLocation{City: rec.City.Names["en"], Country: rec.Country.Names["en"]}
	if loc.Country == "" {
		loc.Country = rec.Country.IsoCode
	}
	if geoipCache != nil {
		geoipCache.Set(ip, loc, cache.DefaultExpiration)
	}
	return loc
}

// GetGeoIPCacheMetrics returns the cache hit and miss counts and the current
// number of cached entries.
func GetGeoIPCacheMetrics() (hits int64, misses int64, size int) {
	hits = atomic.LoadInt64(&geoipCacheHits)
	misses = atomic.LoadInt64(&geoipCacheMiss)
	if geoipCache != nil {
		size = geoipCache.ItemCount()
	}
	return hits, misses, size
}
