package narrate

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultEdgeEndpoint = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"

// Voices maps short style-profile names to full service voice ids.
var Voices = map[string]string{
	"ko-female": "ko-KR-SunHiNeural",
	"ko-male":   "ko-KR-InJoonNeural",
	"en-female": "en-US-JennyNeural",
	"en-male":   "en-US-GuyNeural",
	"ja-female": "ja-JP-NanamiNeural",
}

// ResolveVoice expands a short voice name; full ids pass through.
func ResolveVoice(name string) string {
	if v, ok := Voices[name]; ok {
		return v
	}
	if name == "" {
		return Voices["ko-female"]
	}
	return name
}

// EdgeSynthesizer streams speech from the Edge read-aloud endpoint. The
// service interleaves binary audio frames with JSON metadata messages
// carrying word boundaries, which maps directly onto the Event stream.
type EdgeSynthesizer struct {
	logger   zerolog.Logger
	endpoint string
	limiter  *rate.Limiter
	dialer   *websocket.Dialer
}

// NewEdgeSynthesizer creates a client. callsPerMin throttles connection
// attempts; the endpoint drops clients that reconnect too quickly.
func NewEdgeSynthesizer(logger zerolog.Logger, endpoint string, callsPerMin float64) *EdgeSynthesizer {
	if endpoint == "" {
		endpoint = defaultEdgeEndpoint
	}
	if callsPerMin <= 0 {
		callsPerMin = 60
	}
	return &EdgeSynthesizer{
		logger:   logger.With().Str("component", "edge-tts").Logger(),
		endpoint: endpoint,
		limiter:  rate.NewLimiter(rate.Limit(callsPerMin/60.0), 1),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

// Synthesize opens one websocket turn and streams events until the
// service signals turn.end. The returned channel is closed when the
// turn completes or fails.
func (e *EdgeSynthesizer) Synthesize(ctx context.Context, text, voice, rateStr string) (<-chan Event, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	connID := strings.ReplaceAll(uuid.NewString(), "-", "")
	url := fmt.Sprintf("%s?TrustedClientToken=6A5AA1D4EAFF4E9FB37E23D68491D6F4&ConnectionId=%s", e.endpoint, connID)

	header := http.Header{}
	header.Set("Origin", "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold")
	header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	conn, _, err := e.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial speech endpoint: %w", err)
	}

	if err := e.sendConfig(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := e.sendSSML(conn, text, ResolveVoice(voice), rateStr); err != nil {
		conn.Close()
		return nil, err
	}

	events := make(chan Event, 64)
	go e.readLoop(ctx, conn, events)
	return events, nil
}

func (e *EdgeSynthesizer) sendConfig(conn *websocket.Conn) error {
	msg := "X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"true"},"outputFormat":"audio-24khz-48kbitrate-mono-mp3"}}}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return fmt.Errorf("send speech config: %w", err)
	}
	return nil
}

func (e *EdgeSynthesizer) sendSSML(conn *websocket.Conn, text, voice, rateStr string) error {
	if rateStr == "" {
		rateStr = "+0%"
	}
	ssml := fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'><voice name='%s'><prosody pitch='+0Hz' rate='%s' volume='+0%%'>%s</prosody></voice></speak>`,
		voice, rateStr, escapeXML(text))

	msg := "X-RequestId:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" + ssml
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return fmt.Errorf("send ssml: %w", err)
	}
	return nil
}

// boundaryMessage matches the audio.metadata JSON payload.
type boundaryMessage struct {
	Metadata []struct {
		Type string `json:"Type"`
		Data struct {
			Offset   int64 `json:"Offset"`
			Duration int64 `json:"Duration"`
			Text     struct {
				Text string `json:"Text"`
			} `json:"text"`
		} `json:"Data"`
	} `json:"Metadata"`
}

func (e *EdgeSynthesizer) readLoop(ctx context.Context, conn *websocket.Conn, events chan<- Event) {
	defer close(events)
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	// Sends must stay cancellation-aware: when the consumer abandons
	// the stream the buffer fills, and a bare channel send would pin
	// this goroutine forever.
	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				send(Event{Kind: EventError, Err: fmt.Errorf("read speech stream: %w", err)})
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			headers, body := splitMessage(string(data))
			switch headers["Path"] {
			case "turn.end":
				return
			case "audio.metadata":
				var bm boundaryMessage
				if err := json.Unmarshal([]byte(body), &bm); err != nil {
					e.logger.Debug().Err(err).Msg("unparseable metadata message")
					continue
				}
				for _, md := range bm.Metadata {
					if md.Type != "WordBoundary" {
						continue
					}
					ok := send(Event{Kind: EventBoundary, Boundary: WordTiming{
						Text:     md.Data.Text.Text,
						Start:    TicksToSeconds(md.Data.Offset),
						Duration: TicksToSeconds(md.Data.Duration),
					}})
					if !ok {
						return
					}
				}
			}

		case websocket.BinaryMessage:
			// Binary frames carry a big-endian 2-byte header length,
			// the header text, then the mp3 payload.
			if len(data) < 2 {
				continue
			}
			headerLen := int(binary.BigEndian.Uint16(data[:2]))
			if len(data) < 2+headerLen {
				continue
			}
			payload := data[2+headerLen:]
			if len(payload) > 0 && !send(Event{Kind: EventAudio, Audio: payload}) {
				return
			}
		}
	}
}

// splitMessage separates the \r\n header block from the body.
func splitMessage(msg string) (map[string]string, string) {
	headers := make(map[string]string)
	head, body, _ := strings.Cut(msg, "\r\n\r\n")
	for _, line := range strings.Split(head, "\r\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return headers, body
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&apos;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}
