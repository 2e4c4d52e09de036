// internal/pkg/geo/geo.go
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"secureauth-service/internal/domain/security"
)

// Resolver maps client IP addresses to coarse location data for audit
// enrichment. It is optional: a nil Resolver resolves nothing.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens a MaxMind city database (.mmdb).
func NewResolver(cityDBPath string) (*Resolver, error) {
	reader, err := geoip2.Open(cityDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open city database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

func (r *Resolver) Close() {
	if r != nil && r.reader != nil {
		r.reader.Close()
	}
}

// Resolve returns location data for the IP, or nil if the IP is invalid
// or unknown.
func (r *Resolver) Resolve(ipAddress string) *security.GeoContext {
	if r == nil || r.reader == nil {
		return nil
	}
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return nil
	}

	record, err := r.reader.City(ip)
	if err != nil {
		return nil
	}

	return &security.GeoContext{
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
	}
}
