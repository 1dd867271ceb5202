package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/packet"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"github.com/spf13/cobra"
)

func pingCmd() *cobra.Command {
	var (
		addr    string
		count   int
		body    string
		timeout time.Duration
		retries int
	)
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Send echo frames to a framewired server and report round trips",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			conn, err := dialRetry(ctx, addr, retries, defaultBackoff())
			if err != nil {
				return err
			}
			defer conn.Close()
			if deadline, ok := ctx.Deadline(); ok {
				_ = conn.SetDeadline(deadline)
			}

			c := newClient(conn, frame.DefaultLimits())
			for seq := uint32(1); seq <= uint32(count); seq++ {
				rtt, err := c.Echo(seq, []byte(body))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seq=%d bytes=%d rtt=%s\n", seq, len(body), rtt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7400", "server address")
	cmd.Flags().IntVarP(&count, "count", "n", 3, "number of echo frames")
	cmd.Flags().StringVar(&body, "body", "framewire", "echo body")
	cmd.Flags().IntVar(&retries, "retries", 3, "dial attempts before giving up")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall deadline")
	return cmd
}

// client speaks the reference frame format over one stream.
type client struct {
	rw     io.ReadWriter
	format packet.Format
	limits frame.Limits
}

func newClient(rw io.ReadWriter, limits frame.Limits) *client {
	return &client{
		rw:     rw,
		format: frame.Format(schema.Default(), limits),
		limits: limits,
	}
}

func (c *client) roundTrip(req *packet.Packet) (*packet.Packet, error) {
	if err := frame.WritePacket(c.rw, req, c.limits); err != nil {
		return nil, fmt.Errorf("framewired: write: %w", err)
	}
	resp, err := frame.ReadPacket(c.rw, c.format, c.limits)
	if err != nil {
		return nil, fmt.Errorf("framewired: read: %w", err)
	}
	return resp, nil
}

// Echo sends one echo frame and checks the reply carries seq and body.
func (c *client) Echo(seq uint32, body []byte) (time.Duration, error) {
	start := time.Now()
	resp, err := c.roundTrip(frame.NewPacket(schema.MsgEcho, schema.Echo(seq, body)...))
	if err != nil {
		return 0, err
	}
	rtt := time.Since(start)
	if got, ok := schema.Seq(resp); !ok || got != seq {
		return 0, fmt.Errorf("framewired: echo seq mismatch: got %d want %d", got, seq)
	}
	got, err := schema.Body(resp)
	if err != nil {
		return 0, err
	}
	if !bytes.Equal(got, body) {
		return 0, fmt.Errorf("framewired: echo body mismatch")
	}
	return rtt, nil
}

// Ping sends one ping frame and returns the round trip measured from the
// echoed send time.
func (c *client) Ping(seq uint32) (time.Duration, error) {
	resp, err := c.roundTrip(frame.NewPacket(schema.MsgPing, schema.Ping(seq, time.Now())...))
	if err != nil {
		return 0, err
	}
	if got, ok := schema.Seq(resp); !ok || got != seq {
		return 0, fmt.Errorf("framewired: ping seq mismatch: got %d want %d", got, seq)
	}
	sent, ok := schema.SentAt(resp)
	if !ok {
		return 0, fmt.Errorf("framewired: ping reply without send time")
	}
	return time.Since(sent), nil
}
