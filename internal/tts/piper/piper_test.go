package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nadzzz/doctech/internal/config"
	"github.com/nadzzz/doctech/internal/tts"
)

// fakeServer accepts one connection, records the synthesize request and
// replies with the given events.
func fakeServer(t *testing.T, reply func(net.Conn)) (addr string, got <-chan event) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	requests := make(chan event, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		e, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			return
		}
		requests <- e
		reply(conn)
	}()
	return ln.Addr().String(), requests
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	addr, requests := fakeServer(t, func(c net.Conn) {
		_ = writeEvent(c, event{Type: "audio-start", Data: map[string]any{"rate": 16000, "width": 2, "channels": 1}}, nil)
		_ = writeEvent(c, event{Type: "audio-chunk"}, pcm[:4])
		_ = writeEvent(c, event{Type: "audio-chunk"}, pcm[4:])
		_ = writeEvent(c, event{Type: "audio-stop"}, nil)
	})

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.Synthesize(ctx, "Going to page twelve.", tts.SynthesizeOpts{Language: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", res.ContentType)
	require.Len(t, res.Audio, 44+len(pcm))
	assert.Equal(t, "RIFF", string(res.Audio[:4]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(res.Audio[24:28]))
	assert.Equal(t, pcm, res.Audio[44:])

	req := <-requests
	assert.Equal(t, "synthesize", req.Type)
	assert.Equal(t, "Going to page twelve.", req.Data["text"])
	assert.Equal(t, map[string]any{"name": "fr_FR-siwis-medium"}, req.Data["voice"])
}

func TestSynthesize_ServerError(t *testing.T) {
	addr, _ := fakeServer(t, func(c net.Conn) {
		_ = writeEvent(c, event{Type: "error", Data: map[string]any{"text": "voice not found"}}, nil)
	})

	s := New(config.PiperConfig{Endpoint: addr}, zap.NewNop())
	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Voice: "xx_YY-none"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice not found")
}

func TestRoute(t *testing.T) {
	s := New(config.PiperConfig{
		Endpoint:  "default:10200",
		Endpoints: map[string]string{"de": "tcp://german:10200"},
		Voices:    map[string]string{"en": "en_GB-alan-low"},
	}, zap.NewNop())

	voice, ep := s.route(tts.SynthesizeOpts{Language: "de"})
	assert.Equal(t, "de_DE-thorsten-medium", voice)
	assert.Equal(t, "german:10200", ep)

	voice, ep = s.route(tts.SynthesizeOpts{Language: "sw"})
	assert.Equal(t, "en_GB-alan-low", voice)
	assert.Equal(t, "default:10200", ep)
}

func TestReadEvent_MalformedHeader(t *testing.T) {
	_, _, err := readEvent(bufio.NewReader(bytes.NewBufferString("nonsense\n")))
	assert.Error(t, err)
}
