package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/voxctl/internal/jurisdiction"
	"github.com/danmuck/voxctl/internal/octal"
	"github.com/danmuck/voxctl/internal/protocol/packet"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"
)

func loadMap(c *cli.Context) (*jurisdiction.Map, error) {
	t, err := jurisdiction.ParseNodeType(c.String("type"))
	if err != nil {
		return nil, err
	}
	opt := jurisdiction.WithLogger(log.Logger)
	if path := c.String("file"); path != "" {
		return jurisdiction.FromFile(path, t, opt)
	}
	return jurisdiction.FromHex(t, c.String("root"), c.String("ends"), opt)
}

func printMap(m *jurisdiction.Map) {
	root := m.Root()
	fmt.Printf("type:  %s\n", m.NodeType())
	fmt.Printf("root:  %s (%s)\n", root.Hex(), root)
	for i, e := range m.EndNodes() {
		fmt.Printf("end[%d]: %s (%s)\n", i, e.Hex(), e)
	}
}

func showCommand(c *cli.Context) error {
	m, err := loadMap(c)
	if err != nil {
		return err
	}
	m.LogDetails(log.Logger)
	printMap(m)
	return nil
}

func classifyCommand(c *cli.Context) error {
	m, err := loadMap(c)
	if err != nil {
		return err
	}
	code, err := octal.ParseHex(c.String("code"))
	if err != nil {
		return err
	}
	child := c.Int("child")
	if err := octal.CheckChild(child); err != nil {
		return err
	}
	area, err := m.Classify(code, child)
	if err != nil {
		return err
	}
	fmt.Println(area)
	return nil
}

func packCommand(c *cli.Context) error {
	m, err := loadMap(c)
	if err != nil {
		return err
	}
	sender := uuid.New()
	if raw := c.String("sender"); raw != "" {
		if sender, err = uuid.Parse(raw); err != nil {
			return fmt.Errorf("parse sender: %w", err)
		}
	}
	buf := m.Packet(sender)
	if out := c.String("out"); out != "" {
		return os.WriteFile(out, buf, 0o644)
	}
	fmt.Println(strings.ToUpper(hex.EncodeToString(buf)))
	return nil
}

func unpackCommand(c *cli.Context) error {
	var buf []byte
	var err error
	switch {
	case c.String("in") != "":
		buf, err = os.ReadFile(c.String("in"))
	case c.String("hex") != "":
		buf, err = hex.DecodeString(strings.TrimSpace(c.String("hex")))
	default:
		return errors.New("one of --in or --hex is required")
	}
	if err != nil {
		return err
	}
	h, err := packet.ReadHeader(buf)
	if err != nil {
		return err
	}
	m, err := jurisdiction.FromPacket(buf, jurisdiction.WithLogger(log.Logger))
	if err != nil && !errors.Is(err, jurisdiction.ErrEmptyEndNode) {
		return err
	}
	if err != nil {
		log.Warn().Err(err).Msg("packet carried zero-length end nodes")
	}
	fmt.Printf("sender: %s\n", h.Sender)
	printMap(m)
	return nil
}

func writeCommand(c *cli.Context) error {
	out := c.String("out")
	if out == "" {
		return errors.New("--out is required")
	}
	m, err := loadMap(c)
	if err != nil {
		return err
	}
	if err := m.WriteFile(out); err != nil {
		return err
	}
	log.Info().Str("path", out).Stringer("jurisdiction", m).Msg("jurisdiction written")
	return nil
}
