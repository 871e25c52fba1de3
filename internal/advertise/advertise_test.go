package advertise

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/voxctl/internal/jurisdiction"
	"github.com/danmuck/voxctl/internal/octal"
	"github.com/danmuck/voxctl/internal/protocol/packet"
	"github.com/danmuck/voxctl/internal/registry"
	"github.com/danmuck/voxctl/internal/testutil/testlog"
	"github.com/google/uuid"
)

type capture struct {
	mu   sync.Mutex
	pkts [][]byte
	fail error
}

func (c *capture) Publish(_ context.Context, pkt []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.pkts = append(c.pkts, pkt)
	return nil
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pkts)
}

func mustMap(t *testing.T, root, ends string) *jurisdiction.Map {
	t.Helper()
	m, err := jurisdiction.FromHex(jurisdiction.NodeTypeVoxelServer, root, ends)
	if err != nil {
		t.Fatalf("from hex: %v", err)
	}
	return m
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config{Interval: 0}, nil, &capture{}, testlog.Logger(t)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if _, err := New(Config{Interval: time.Second}, nil, nil, testlog.Logger(t)); !errors.Is(err, ErrNilPublisher) {
		t.Fatalf("expected ErrNilPublisher, got %v", err)
	}
}

func TestAdvertiseOnceReachesRegistry(t *testing.T) {
	testlog.Start(t)
	reg := registry.New(testlog.Logger(t))
	cfg := Config{Sender: uuid.New(), Interval: time.Second}
	m := mustMap(t, "0160", "026C")
	a, err := New(cfg, m, reg, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.AdvertiseOnce(context.Background()); err != nil {
		t.Fatalf("advertise: %v", err)
	}
	got, err := reg.Get(cfg.Sender)
	if err != nil {
		t.Fatalf("registry get: %v", err)
	}
	if !got.Equal(m) {
		t.Fatalf("registry holds %s want %s", got, m)
	}
}

func TestRunPublishesUntilCancelled(t *testing.T) {
	pub := &capture{}
	a, err := New(Config{Sender: uuid.New(), Interval: 5 * time.Millisecond}, nil, pub, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if pub.count() < 3 {
		t.Fatalf("expected at least 3 advertisements, got %d", pub.count())
	}
}

func TestPublishFailureSurfaces(t *testing.T) {
	boom := errors.New("boom")
	a, err := New(Config{Interval: time.Second}, nil, &capture{fail: boom}, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.AdvertiseOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
}

func TestSetJurisdictionSwapsSnapshot(t *testing.T) {
	pub := &capture{}
	a, err := New(Config{Sender: uuid.New(), Interval: time.Second}, nil, pub, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	next := mustMap(t, "0278", "")
	a.SetJurisdiction(next)
	next.Clear()

	if a.Jurisdiction().Root().String() != "3.6" {
		t.Fatalf("advertiser must keep its own copy, got %s", a.Jurisdiction())
	}
	if err := a.AdvertiseOnce(context.Background()); err != nil {
		t.Fatalf("advertise: %v", err)
	}
	out, err := jurisdiction.FromPacket(pub.pkts[0])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if out.IsMyJurisdiction(octal.Code{0x02, 0x78}, octal.NoChild) != jurisdiction.Within {
		t.Fatalf("advertised map does not claim its root: %s", out)
	}
}

func TestSetJurisdictionNilClaimsNothing(t *testing.T) {
	pub := &capture{}
	a, err := New(Config{Sender: uuid.New(), Interval: time.Second}, mustMap(t, "0278", ""), pub, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a.SetJurisdiction(nil)

	got := a.Jurisdiction()
	if !got.Empty() || got.NodeType() != jurisdiction.NodeTypeVoxelServer {
		t.Fatalf("expected empty voxel-server jurisdiction, got %s", got)
	}
	if err := a.AdvertiseOnce(context.Background()); err != nil {
		t.Fatalf("advertise: %v", err)
	}
	if len(pub.pkts) != 1 || len(pub.pkts[0]) != packet.HeaderLen+5 {
		t.Fatalf("expected one empty jurisdiction packet, got %v", pub.pkts)
	}
}

func TestRespond(t *testing.T) {
	a, err := New(Config{Sender: uuid.New(), Interval: time.Second}, mustMap(t, "0160", ""), &capture{}, testlog.Logger(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	resp, err := a.Respond(NewRequest(uuid.New()))
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	m, err := jurisdiction.FromPacket(resp)
	if err != nil || m.Root().String() != "3" {
		t.Fatalf("response: %s err=%v", m, err)
	}

	if _, err := a.Respond(resp); !errors.Is(err, ErrNotRequest) {
		t.Fatalf("expected ErrNotRequest, got %v", err)
	}
}
