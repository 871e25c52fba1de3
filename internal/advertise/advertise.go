// Package advertise periodically broadcasts a server's jurisdiction.
//
// Delivery is left to a Publisher; this package only builds packets and
// decides when to send them.
package advertise

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/voxctl/internal/jurisdiction"
	"github.com/danmuck/voxctl/internal/observability"
	"github.com/danmuck/voxctl/internal/protocol/packet"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidInterval = errors.New("advertise: invalid interval")
	ErrNilPublisher    = errors.New("advertise: nil publisher")
	ErrNotRequest      = errors.New("advertise: not a jurisdiction request")
)

// Publisher delivers a packet to the rest of the mesh.
type Publisher interface {
	Publish(ctx context.Context, pkt []byte) error
}

type PublisherFunc func(ctx context.Context, pkt []byte) error

func (f PublisherFunc) Publish(ctx context.Context, pkt []byte) error {
	return f(ctx, pkt)
}

type Config struct {
	Sender   uuid.UUID
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Sender:   uuid.New(),
		Interval: 5 * time.Second,
	}
}

// Advertiser owns the jurisdiction it sends. Updates swap in a fresh clone so
// a packet in flight never sees a half-built map.
type Advertiser struct {
	cfg Config
	pub Publisher
	log zerolog.Logger

	mu sync.RWMutex
	m  *jurisdiction.Map
}

func New(cfg Config, m *jurisdiction.Map, pub Publisher, logger zerolog.Logger) (*Advertiser, error) {
	if cfg.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if m == nil {
		m = jurisdiction.NewDefault(jurisdiction.NodeTypeUnassigned)
	}
	return &Advertiser{cfg: cfg, pub: pub, log: logger, m: m.Clone()}, nil
}

func (a *Advertiser) Sender() uuid.UUID {
	return a.cfg.Sender
}

// SetJurisdiction replaces what future advertisements carry. A nil map keeps
// the node type and advertises no territory.
func (a *Advertiser) SetJurisdiction(m *jurisdiction.Map) {
	a.mu.Lock()
	var next *jurisdiction.Map
	if m == nil {
		next = jurisdiction.NewDefault(a.m.NodeType())
	} else {
		next = m.Clone()
	}
	a.m = next
	a.mu.Unlock()
	a.log.Info().Stringer("jurisdiction", next).Msg("advertise jurisdiction updated")
}

func (a *Advertiser) Jurisdiction() *jurisdiction.Map {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.m.Clone()
}

func (a *Advertiser) packet() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.m.Packet(a.cfg.Sender)
}

// AdvertiseOnce packs the current jurisdiction and publishes it.
func (a *Advertiser) AdvertiseOnce(ctx context.Context) error {
	pkt := a.packet()
	err := a.pub.Publish(ctx, pkt)
	observability.RecordAdvertisement(err == nil)
	if err != nil {
		return fmt.Errorf("advertise publish: %w", err)
	}
	a.log.Debug().Stringer("sender", a.cfg.Sender).Int("bytes", len(pkt)).Msg("advertise published")
	return nil
}

// Run advertises immediately and then every interval until ctx ends.
// Publish failures are logged and retried on the next tick.
func (a *Advertiser) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.log.Info().
		Stringer("sender", a.cfg.Sender).
		Dur("interval", a.cfg.Interval).
		Msg("advertise loop started")
	for {
		if err := a.AdvertiseOnce(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn().Err(err).Msg("advertise failed")
		}
		select {
		case <-ctx.Done():
			a.log.Info().Stringer("sender", a.cfg.Sender).Msg("advertise loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Respond answers a jurisdiction request packet with the current jurisdiction.
func (a *Advertiser) Respond(req []byte) ([]byte, error) {
	h, err := packet.ReadHeader(req)
	if err != nil {
		return nil, err
	}
	if h.Type != packet.TypeJurisdictionRequest {
		return nil, fmt.Errorf("%w: %s", ErrNotRequest, h.Type)
	}
	a.log.Debug().Stringer("from", h.Sender).Msg("advertise request answered")
	return a.packet(), nil
}

// NewRequest builds the packet a node sends to ask peers for their jurisdiction.
func NewRequest(sender uuid.UUID) []byte {
	buf := make([]byte, packet.HeaderLen)
	_, _ = packet.WriteHeader(buf, packet.TypeJurisdictionRequest, sender)
	return buf
}
