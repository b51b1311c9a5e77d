package server

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/jroosing/hydradns/internal/cache"
	"github.com/jroosing/hydradns/internal/database"
	"github.com/jroosing/hydradns/internal/dns"
	"github.com/jroosing/hydradns/internal/zone"
)

// SeedFromDatabase loads every persisted custom-DNS host and CNAME record
// into the cache as a single bulk publish. Hostnames missing a trailing dot
// are treated as already-absolute names, matching how they are stored.
func SeedFromDatabase(db *database.DB) SeedFunc {
	return func(ctx context.Context, c *cache.Cache) error {
		hosts, err := db.GetAllHosts()
		if err != nil {
			return fmt.Errorf("seed: load custom dns hosts: %w", err)
		}
		cnames, err := db.GetAllCNAMEs()
		if err != nil {
			return fmt.Errorf("seed: load custom dns cnames: %w", err)
		}
		if len(hosts) == 0 && len(cnames) == 0 {
			return nil
		}

		bulk := c.Bulk()
		for _, h := range hosts {
			addr, err := netip.ParseAddr(h.IPAddress)
			if err != nil {
				return fmt.Errorf("seed: host %s has invalid address %q: %w", h.Hostname, h.IPAddress, err)
			}
			name := dns.NewDomainName(h.Hostname)
			if addr.Is4() {
				bulk.Insert(name, dns.NewAResourceData(0, addr.As4()))
			} else {
				b16 := addr.As16()
				bulk.Insert(name, dns.NewGenericResourceData(dns.TypeAAAA, dns.ClassIN, 0, b16[:]))
			}
		}
		for _, cn := range cnames {
			bulk.Insert(dns.NewDomainName(cn.Alias), dns.NewGenericResourceData(dns.TypeCNAME, dns.ClassIN, 0, encodeOwnedNameWire(cn.Target)))
		}

		return bulk.Publish(ctx)
	}
}

// SeedFromZoneFiles parses every RFC 1035 zone file in paths and loads the
// records it can represent into the cache as one bulk publish per file.
func SeedFromZoneFiles(paths []string) SeedFunc {
	return func(ctx context.Context, c *cache.Cache) error {
		for _, path := range paths {
			z, err := zone.LoadFile(path)
			if err != nil {
				return fmt.Errorf("seed: load zone file %s: %w", path, err)
			}
			names, datas, err := z.ToCacheRecords()
			if err != nil {
				return fmt.Errorf("seed: convert zone file %s: %w", path, err)
			}
			if len(names) == 0 {
				continue
			}
			bulk := c.Bulk()
			for i := range names {
				bulk.Insert(names[i], datas[i])
			}
			if err := bulk.Publish(ctx); err != nil {
				return fmt.Errorf("seed: publish zone file %s: %w", path, err)
			}
		}
		return nil
	}
}

// CombineSeeds runs every seed function in order, so multiple static record
// sources (database, zone files) can feed the same cache at startup.
func CombineSeeds(seeds ...SeedFunc) SeedFunc {
	return func(ctx context.Context, c *cache.Cache) error {
		for _, s := range seeds {
			if s == nil {
				continue
			}
			if err := s(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}
}

func encodeOwnedNameWire(name string) []byte {
	owned := dns.NewDomainName(name)
	var out []byte
	for _, label := range owned.Labels() {
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	return append(out, 0)
}
