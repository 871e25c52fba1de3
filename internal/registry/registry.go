// Package registry tracks the jurisdiction each known server advertises.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/voxctl/internal/jurisdiction"
	"github.com/danmuck/voxctl/internal/observability"
	"github.com/danmuck/voxctl/internal/octal"
	"github.com/danmuck/voxctl/internal/protocol/packet"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrUnknownNode = errors.New("registry: unknown node")

// Registry maps sender ids to immutable jurisdiction snapshots.
type Registry struct {
	mu    sync.RWMutex
	nodes map[uuid.UUID]entry
	log   zerolog.Logger
}

// entry is one stored snapshot. A degenerate root on the wire means the
// sender holds no territory, so such entries never own anything.
type entry struct {
	m      *jurisdiction.Map
	claims bool
}

func New(logger zerolog.Logger) *Registry {
	return &Registry{
		nodes: make(map[uuid.UUID]entry),
		log:   logger,
	}
}

// HandlePacket stores the jurisdiction carried by a packet under its sender.
// A packet whose only fault is a zero-length end node is still stored. An
// empty jurisdiction is stored but owns no codes.
func (r *Registry) HandlePacket(buf []byte) (uuid.UUID, error) {
	h, err := packet.ReadHeader(buf)
	if err != nil {
		return uuid.Nil, err
	}
	if h.Type != packet.TypeJurisdiction {
		return h.Sender, fmt.Errorf("%w: %s", jurisdiction.ErrWrongPacket, h.Type)
	}
	m, err := jurisdiction.FromPacket(buf, jurisdiction.WithLogger(r.log))
	if err != nil && !errors.Is(err, jurisdiction.ErrEmptyEndNode) {
		r.log.Warn().Err(err).Stringer("sender", h.Sender).Msg("registry dropped jurisdiction packet")
		return h.Sender, err
	}
	r.put(h.Sender, entry{m: m, claims: !m.Empty()})
	return h.Sender, err
}

// Put stores a clone of m under id. Unlike a received packet, a degenerate
// root here claims the whole space.
func (r *Registry) Put(id uuid.UUID, m *jurisdiction.Map) {
	r.put(id, entry{m: m.Clone(), claims: true})
}

func (r *Registry) put(id uuid.UUID, e entry) {
	r.mu.Lock()
	r.nodes[id] = e
	n := len(r.nodes)
	r.mu.Unlock()
	observability.SetRegistryNodes(n)
	r.log.Debug().
		Stringer("node", id).
		Stringer("jurisdiction", e.m).
		Bool("claims", e.claims).
		Msg("registry updated")
}

func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	_, ok := r.nodes[id]
	delete(r.nodes, id)
	n := len(r.nodes)
	r.mu.Unlock()
	observability.SetRegistryNodes(n)
	return ok
}

// Get returns a clone of the jurisdiction known for id.
func (r *Registry) Get(id uuid.UUID) (*jurisdiction.Map, error) {
	r.mu.RLock()
	e, ok := r.nodes[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return e.m.Clone(), nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Snapshot returns clones of every stored jurisdiction.
func (r *Registry) Snapshot() map[uuid.UUID]*jurisdiction.Map {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]*jurisdiction.Map, len(r.nodes))
	for id, e := range r.nodes {
		out[id] = e.m.Clone()
	}
	return out
}

// Owners lists every server whose jurisdiction places code WITHIN, sorted by
// id. Overlapping claims are all returned; servers that advertised an empty
// jurisdiction are skipped.
func (r *Registry) Owners(code octal.Code, child int) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []uuid.UUID
	for id, e := range r.nodes {
		if e.claims && e.m.IsMyJurisdiction(code, child) == jurisdiction.Within {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Publish lets a registry act as the in-process receiving end of an advertiser.
func (r *Registry) Publish(ctx context.Context, pkt []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.HandlePacket(pkt)
	return err
}
