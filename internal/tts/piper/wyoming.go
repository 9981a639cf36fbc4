package piper

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// event is one Wyoming protocol message:
//
//	<json_length> <payload_length>\n
//	<json>\n
//	<payload>
type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func (e event) int(key string, fallback int) int {
	if v, ok := e.Data[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func writeEvent(w io.Writer, e event, payload []byte) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.Type, err)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", len(body), len(payload))
	bw.Write(body)
	bw.WriteByte('\n')
	bw.Write(payload)
	return bw.Flush()
}

func readEvent(r *bufio.Reader) (event, []byte, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return event{}, nil, fmt.Errorf("reading header: %w", err)
	}
	jsonLen, payloadLen, err := parseHeader(line)
	if err != nil {
		return event{}, nil, err
	}

	body := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(r, body); err != nil {
		return event{}, nil, fmt.Errorf("reading body: %w", err)
	}
	var e event
	if err := json.Unmarshal(body[:jsonLen], &e); err != nil {
		return event{}, nil, fmt.Errorf("decoding event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return event{}, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return e, payload, nil
}

func parseHeader(line string) (jsonLen, payloadLen int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("malformed wyoming header %q", strings.TrimSpace(line))
	}
	if jsonLen, err = strconv.Atoi(fields[0]); err != nil || jsonLen < 0 {
		return 0, 0, fmt.Errorf("malformed json length %q", fields[0])
	}
	if payloadLen, err = strconv.Atoi(fields[1]); err != nil || payloadLen < 0 {
		return 0, 0, fmt.Errorf("malformed payload length %q", fields[1])
	}
	return jsonLen, payloadLen, nil
}
