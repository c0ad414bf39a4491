// Package discovery finds WLED devices on the local network via mDNS.
package discovery

import (
	"context"
	"strings"
	"time"

	mdns "github.com/hashicorp/mdns"
	log "github.com/sirupsen/logrus"
)

const (
	wledService  = "_wled._tcp"
	browseDomain = "local"
	queryTimeout = 3 * time.Second
)

// Candidate is a device found on the network, not yet validated or adopted.
type Candidate struct {
	Host string
	Name string
}

// Browser periodically queries for WLED devices and hands candidates to a
// callback. Deduplication happens at adoption, not here: the same device
// showing up in every browse round is expected.
type Browser struct {
	Interval time.Duration

	onCandidate func(Candidate)
}

// NewBrowser creates a browser that queries every interval.
func NewBrowser(interval time.Duration, onCandidate func(Candidate)) *Browser {
	return &Browser{
		Interval:    interval,
		onCandidate: onCandidate,
	}
}

// Run browses immediately and then on every interval tick until ctx is
// cancelled.
func (b *Browser) Run(ctx context.Context) {
	b.browse()

	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.browse()
		}
	}
}

func (b *Browser) browse() {
	log.Debug("Starting WLED mDNS browse")

	entriesCh := make(chan *mdns.ServiceEntry, 4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entriesCh {
			candidate, ok := candidateFromEntry(entry)
			if !ok {
				continue
			}
			log.Debugf("Discovered WLED device %s (%s)", candidate.Name, candidate.Host)
			b.onCandidate(candidate)
		}
	}()

	params := &mdns.QueryParam{
		Service:     wledService,
		Domain:      browseDomain,
		Timeout:     queryTimeout,
		Entries:     entriesCh,
		DisableIPv6: true,
	}
	if err := mdns.Query(params); err != nil {
		log.WithError(err).Warn("WLED mDNS query failed")
	}

	close(entriesCh)
	<-done
}

func candidateFromEntry(entry *mdns.ServiceEntry) (Candidate, bool) {
	if !strings.Contains(entry.Name, wledService) {
		return Candidate{}, false
	}
	if entry.AddrV4 == nil {
		return Candidate{}, false
	}
	name := strings.TrimSuffix(entry.Name, "."+wledService+"."+browseDomain+".")
	return Candidate{
		Host: entry.AddrV4.String(),
		Name: name,
	}, true
}
