// Copyright (C) 2025 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package trustnet decides whether a request originates from a configured internal network.
package trustnet

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/croessner/portier/server/config"
	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/croessner/portier/server/log/level"
	"github.com/dspinhirne/netaddr-go"
)

// Classifier holds the parsed trusted IPv4 ranges. It is immutable and safe for concurrent use.
type Classifier struct {
	ranges []ipv4Range
}

// ipv4Range is an inclusive range in big-endian numeric form.
type ipv4Range struct {
	from uint32
	to   uint32
}

func (r ipv4Range) contains(addr uint32) bool {
	return addr >= r.from && addr <= r.to
}

// NewClassifier parses the configured ranges. Malformed entries are logged and skipped.
func NewClassifier(ranges []config.IPRange, logger *slog.Logger) *Classifier {
	c := &Classifier{ranges: make([]ipv4Range, 0, len(ranges))}

	for index, entry := range ranges {
		parsed, err := parseRange(entry)
		if err != nil {
			if logger != nil {
				level.Warn(logger).Log(
					definitions.LogKeyMsg, "Skipping trusted ip range",
					"index", index,
					"from", entry.From,
					"to", entry.To,
					definitions.LogKeyError, err,
				)
			}

			continue
		}

		c.ranges = append(c.ranges, parsed)
	}

	return c
}

// Len returns the number of usable ranges.
func (c *Classifier) Len() int {
	if c == nil {
		return 0
	}

	return len(c.ranges)
}

// IsTrustedOrigin reports whether remoteAddress is loopback or an IPv4 address inside one of
// the ranges. IPv4-mapped IPv6 addresses count as IPv4. Other IPv6 addresses are never trusted.
// remoteAddress may carry a port.
func (c *Classifier) IsTrustedOrigin(remoteAddress string) bool {
	addr, ok := parseRemote(remoteAddress)
	if !ok {
		return false
	}

	if addr.IsLoopback() {
		return true
	}

	if !addr.Is4() || c == nil {
		return false
	}

	numeric, err := toUint32(addr.String())
	if err != nil {
		return false
	}

	for _, r := range c.ranges {
		if r.contains(numeric) {
			return true
		}
	}

	return false
}

// IsTrustedOrigin classifies remoteAddress against ranges without keeping the parsed form.
func IsTrustedOrigin(remoteAddress string, ranges []config.IPRange) bool {
	return NewClassifier(ranges, nil).IsTrustedOrigin(remoteAddress)
}

func parseRemote(remote string) (netip.Addr, bool) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return netip.Addr{}, false
	}

	if addrPort, err := netip.ParseAddrPort(remote); err == nil {
		return addrPort.Addr().Unmap(), true
	}

	addr, err := netip.ParseAddr(strings.Trim(remote, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}

	return addr.WithZone("").Unmap(), true
}

func parseRange(entry config.IPRange) (ipv4Range, error) {
	from, err := toUint32(strings.TrimSpace(entry.From))
	if err != nil {
		return ipv4Range{}, fmt.Errorf("%w: from: %v", errors.ErrInvalidIPRange, err)
	}

	to, err := toUint32(strings.TrimSpace(entry.To))
	if err != nil {
		return ipv4Range{}, fmt.Errorf("%w: to: %v", errors.ErrInvalidIPRange, err)
	}

	if from > to {
		return ipv4Range{}, fmt.Errorf("%w: start after end", errors.ErrInvalidIPRange)
	}

	return ipv4Range{from: from, to: to}, nil
}

// toUint32 accepts IPv4 and IPv4-mapped IPv6 notation.
func toUint32(ip string) (uint32, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return 0, err
	}

	if addr = addr.Unmap(); !addr.Is4() {
		return 0, fmt.Errorf("not an IPv4 address: %s", ip)
	}

	parsed, err := netaddr.ParseIPv4(addr.String())
	if err != nil {
		return 0, err
	}

	return parsed.Addr(), nil
}
