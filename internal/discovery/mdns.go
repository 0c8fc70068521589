package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type ecofan bridges register under
	ServiceType = "_ecofan._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout bounds a Scan when the context has no deadline
	DefaultScanTimeout = 3 * time.Second

	// APIPath is advertised so clients know where the fan list lives
	APIPath = "/api/fans"
)

// ErrInvalidPort is returned by Advertise for a port outside 1..65535.
var ErrInvalidPort = errors.New("invalid port")

// Announcement describes one bridge to register.
type Announcement struct {
	// Instance is the human-readable service name. Defaults to
	// "ecofan on <hostname>".
	Instance string
	Port     int
	Text     []string
}

// TXTRecords builds the TXT payload for a bridge.
func TXTRecords(version string, fans int) []string {
	return []string{
		"version=" + version,
		"path=" + APIPath,
		"fans=" + strconv.Itoa(fans),
	}
}

// DefaultInstance returns the instance name used when none is set.
func DefaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "ecofan"
	}
	return "ecofan on " + strings.TrimSuffix(host, ".local")
}

// PortOf extracts the TCP port from a listener address.
func PortOf(addr net.Addr) (int, error) {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port, nil
	}
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0, fmt.Errorf("cannot read port from %s: %w", addr, err)
	}
	return strconv.Atoi(port)
}

// Advertiser keeps a bridge registered until Shutdown.
type Advertiser struct {
	server *zeroconf.Server
	ann    Announcement
	log    *zap.Logger
}

// Advertise registers a on every multicast interface.
func Advertise(a Announcement, log *zap.Logger) (*Advertiser, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if a.Port <= 0 || a.Port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, a.Port)
	}
	if a.Instance == "" {
		a.Instance = DefaultInstance()
	}

	server, err := zeroconf.Register(a.Instance, ServiceType, ServiceDomain, a.Port, a.Text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	log.Info("Advertising bridge",
		zap.String("instance", a.Instance),
		zap.String("service", ServiceType),
		zap.Int("port", a.Port),
	)
	return &Advertiser{server: server, ann: a, log: log}, nil
}

// Shutdown withdraws the registration.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
	a.log.Info("Stopped advertising bridge", zap.String("instance", a.ann.Instance))
}

// Bridge is a bridge found on the network.
type Bridge struct {
	Instance string `json:"instance"`
	HostName string `json:"hostname"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Version  string `json:"version,omitempty"`
	Path     string `json:"path"`
	Fans     int    `json:"fans"`
}

// URL returns the bridge's fan list endpoint.
func (b *Bridge) URL() string {
	return "http://" + net.JoinHostPort(b.IP, strconv.Itoa(b.Port)) + b.Path
}

// Scanner browses for bridges.
type Scanner struct {
	// Timeout is used when the context passed to Scan has no deadline
	Timeout time.Duration
}

// NewScanner creates a Scanner with DefaultScanTimeout.
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan browses until ctx ends or the timeout passes and returns every
// bridge that answered.
func (s *Scanner) Scan(ctx context.Context) ([]*Bridge, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		bridges = make([]*Bridge, 0)
		seen    = make(map[string]bool)
	)
	go func() {
		for entry := range entries {
			b := parseServiceEntry(entry)
			if b == nil {
				continue
			}
			mu.Lock()
			if !seen[b.Instance] {
				seen[b.Instance] = true
				bridges = append(bridges, b)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for bridges: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Bridge(nil), bridges...), nil
}

// parseServiceEntry converts a service entry into a Bridge. Entries without
// an address are skipped.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	var ip string
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0].String()
	default:
		return nil
	}

	b := &Bridge{
		Instance: entry.Instance,
		HostName: strings.TrimSuffix(entry.HostName, "."),
		IP:       ip,
		Port:     entry.Port,
		Path:     APIPath,
	}
	for _, txt := range entry.Text {
		key, value, ok := strings.Cut(txt, "=")
		if !ok {
			continue
		}
		switch key {
		case "version":
			b.Version = value
		case "path":
			b.Path = value
		case "fans":
			if n, err := strconv.Atoi(value); err == nil {
				b.Fans = n
			}
		}
	}
	return b
}
