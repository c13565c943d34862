package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
)

// broker is a minimal STOMP-over-WebSocket server.
type broker struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	conns       []*websocket.Conn
	connects    []*frame.Frame
	connectedAt []time.Time
	closedAt    []time.Time
	subscribes  []*frame.Frame
	sends       []*frame.Frame
	disconnects int

	subscribed chan struct{}
}

func newBroker(t *testing.T) *broker {
	b := &broker{t: t, subscribed: make(chan struct{}, 16)}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *broker) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/ws/websocket"
}

func (b *broker) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conns = append(b.conns, conn)
	b.mu.Unlock()

	defer func() {
		conn.Close()
		b.mu.Lock()
		b.closedAt = append(b.closedAt, time.Now())
		b.mu.Unlock()
	}()

	subs := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frames, err := decodeFrames(data)
		if err != nil {
			b.t.Errorf("server decode: %v", err)
			return
		}
		for _, f := range frames {
			switch f.Command {
			case frame.CONNECT:
				b.mu.Lock()
				b.connects = append(b.connects, f)
				b.connectedAt = append(b.connectedAt, time.Now())
				b.mu.Unlock()
				b.write(conn, frame.New(frame.CONNECTED, frame.Version, "1.2", frame.HeartBeat, "0,0"))
			case frame.SUBSCRIBE:
				b.mu.Lock()
				b.subscribes = append(b.subscribes, f)
				b.mu.Unlock()
				subs++
				if subs == 2 {
					b.subscribed <- struct{}{}
				}
			case frame.SEND:
				b.mu.Lock()
				b.sends = append(b.sends, f)
				b.mu.Unlock()
			case frame.DISCONNECT:
				b.mu.Lock()
				b.disconnects++
				b.mu.Unlock()
			}
		}
	}
}

func (b *broker) write(conn *websocket.Conn, f *frame.Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		b.t.Errorf("server encode: %v", err)
		return
	}
	conn.WriteMessage(websocket.TextMessage, data)
}

// push delivers a MESSAGE frame on the newest connection.
func (b *broker) push(subscription, destination, body string) {
	b.mu.Lock()
	conn := b.conns[len(b.conns)-1]
	b.mu.Unlock()

	f := frame.New(frame.MESSAGE,
		frame.Subscription, subscription,
		frame.Destination, destination,
		frame.MessageId, "1",
		frame.ContentType, "application/json",
	)
	f.Body = []byte(body)
	b.write(conn, f)
}

// dropAll closes every server-side socket.
func (b *broker) dropAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		c.Close()
	}
}

func (b *broker) waitSubscribed(t *testing.T) {
	t.Helper()
	select {
	case <-b.subscribed:
	case <-time.After(3 * time.Second):
		t.Fatalf("client never subscribed")
	}
}

type recordingGauge struct {
	mu     sync.Mutex
	counts []int
}

func (g *recordingGauge) Set(count int, source string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if source == domain.SourcePush {
		g.counts = append(g.counts, count)
	}
}

func (g *recordingGauge) last() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.counts) == 0 {
		return 0, false
	}
	return g.counts[len(g.counts)-1], true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestChannel(b *broker, delay time.Duration) (*Channel, *Transcript, *recordingGauge) {
	tr := NewTranscript()
	g := &recordingGauge{}
	ch := NewChannel(Config{
		URL:            b.url(),
		VideoID:        "42",
		Username:       "Gost_7",
		ReconnectDelay: delay,
		WriteWait:      time.Second,
	}, tr, g)
	return ch, tr, g
}

func TestChannel_HandshakeAndSubscriptions(t *testing.T) {
	b := newBroker(t)
	ch, _, _ := newTestChannel(b, time.Second)

	ch.Start(context.Background())
	defer ch.Stop()

	b.waitSubscribed(t)
	waitFor(t, "connected", ch.Connected)

	b.mu.Lock()
	connect := b.connects[0]
	subs := append([]*frame.Frame(nil), b.subscribes...)
	b.mu.Unlock()

	if got := connect.Header.Get("username"); got != "Gost_7" {
		t.Fatalf("username header=%q", got)
	}
	if got := connect.Header.Get(frame.AcceptVersion); got != "1.2" {
		t.Fatalf("accept-version=%q", got)
	}
	if got := connect.Header.Get(frame.HeartBeat); got != "0,0" {
		t.Fatalf("heart-beat=%q", got)
	}

	want := map[string]string{
		subChat:    "/topic/video/42/chat",
		subViewers: "/topic/video/42/viewers",
	}
	for _, s := range subs {
		id := s.Header.Get(frame.Id)
		if want[id] != s.Header.Get(frame.Destination) {
			t.Fatalf("subscription %s -> %s", id, s.Header.Get(frame.Destination))
		}
		delete(want, id)
	}
	if len(want) != 0 {
		t.Fatalf("missing subscriptions: %v", want)
	}
}

func TestChannel_InboundOrderingAndViewerPush(t *testing.T) {
	b := newBroker(t)
	ch, tr, g := newTestChannel(b, time.Second)

	ch.Start(context.Background())
	defer ch.Stop()
	b.waitSubscribed(t)

	b.push(subChat, chatTopic("42"), `{"username":"bob","videoId":42,"type":"JOIN"}`)
	b.push(subChat, chatTopic("42"), `{"username":"bob","message":"hi","videoId":42,"type":"CHAT"}`)
	b.push(subChat, chatTopic("42"), `{not json`)
	b.push(subChat, chatTopic("42"), `{"username":"amy","message":"hello","videoId":42,"type":"CHAT"}`)
	b.push(subViewers, viewersTopic("42"), `{"type":"VIEWER_COUNT","videoId":42,"viewerCount":3}`)

	waitFor(t, "viewer push", func() bool {
		n, ok := g.last()
		return ok && n == 3
	})
	waitFor(t, "three messages", func() bool { return tr.Len() == 3 })

	msgs := tr.Messages()
	if !msgs[0].IsSystem() || msgs[0].Username != "bob" {
		t.Fatalf("first message=%+v", msgs[0])
	}
	if msgs[1].Message != "hi" || msgs[2].Message != "hello" {
		t.Fatalf("order=%q,%q", msgs[1].Message, msgs[2].Message)
	}
}

func TestChannel_Publish(t *testing.T) {
	b := newBroker(t)
	ch, tr, _ := newTestChannel(b, time.Second)

	ch.Start(context.Background())
	defer ch.Stop()
	b.waitSubscribed(t)
	waitFor(t, "connected", ch.Connected)

	if err := ch.Publish(context.Background(), "  hello there  "); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, "SEND frame", func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.sends) == 1
	})

	b.mu.Lock()
	send := b.sends[0]
	b.mu.Unlock()

	if got := send.Header.Get(frame.Destination); got != "/app/video/42/chat" {
		t.Fatalf("destination=%q", got)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(send.Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["message"] != "hello there" || body["username"] != "Gost_7" || body["type"] != "CHAT" {
		t.Fatalf("body=%v", body)
	}
	if body["videoId"] != float64(42) {
		t.Fatalf("videoId=%v", body["videoId"])
	}
	if tr.Len() != 0 {
		t.Fatalf("outbound message must only appear once echoed by the broker")
	}
}

func TestChannel_PublishValidation(t *testing.T) {
	b := newBroker(t)
	ch, _, _ := newTestChannel(b, time.Second)

	if err := ch.Publish(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err=%v want ErrEmptyMessage", err)
	}
	if err := ch.Publish(context.Background(), strings.Repeat("é", 301)); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("err=%v want ErrMessageTooLong", err)
	}
}

func TestChannel_PublishWhileDisconnected(t *testing.T) {
	b := newBroker(t)
	ch, tr, _ := newTestChannel(b, time.Second)

	if ch.Connected() {
		t.Fatalf("new channel must start disconnected")
	}
	if err := ch.Publish(context.Background(), "hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err=%v want ErrNotConnected", err)
	}
	if tr.Len() != 0 {
		t.Fatalf("transcript modified by rejected publish")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sends) != 0 {
		t.Fatalf("broker received %d frames", len(b.sends))
	}
}

func TestChannel_ReconnectAfterFixedDelayWithSameUsername(t *testing.T) {
	const delay = 300 * time.Millisecond

	b := newBroker(t)
	ch, _, _ := newTestChannel(b, delay)

	ch.Start(context.Background())
	defer ch.Stop()
	b.waitSubscribed(t)

	b.dropAll()
	waitFor(t, "disconnect", func() bool { return !ch.Connected() })
	dropped := time.Now()

	b.waitSubscribed(t)
	waitFor(t, "reconnect", ch.Connected)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.connects) != 2 {
		t.Fatalf("connects=%d want 2", len(b.connects))
	}
	if gap := b.connectedAt[1].Sub(dropped); gap < delay-20*time.Millisecond {
		t.Fatalf("reconnected after %v, want no earlier than %v", gap, delay)
	}
	if b.connects[0].Header.Get("username") != b.connects[1].Header.Get("username") {
		t.Fatalf("username changed across reconnects")
	}
}

func TestChannel_StopSendsDisconnect(t *testing.T) {
	b := newBroker(t)
	ch, _, _ := newTestChannel(b, time.Second)

	ch.Start(context.Background())
	b.waitSubscribed(t)
	waitFor(t, "connected", ch.Connected)

	ch.Stop()

	if ch.Connected() {
		t.Fatalf("still connected after stop")
	}
	waitFor(t, "DISCONNECT frame", func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.disconnects == 1
	})
	if err := ch.Publish(context.Background(), "late"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err=%v want ErrNotConnected", err)
	}
}

func TestChannel_RetriesWhileBrokerDown(t *testing.T) {
	b := newBroker(t)
	url := b.url()
	b.srv.Close()

	ch := NewChannel(Config{
		URL:            url,
		VideoID:        "42",
		Username:       "Gost_1",
		ReconnectDelay: 10 * time.Millisecond,
		WriteWait:      100 * time.Millisecond,
	}, NewTranscript(), &recordingGauge{})

	ch.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	if ch.Connected() {
		t.Fatalf("connected to a closed server")
	}

	done := make(chan struct{})
	go func() {
		ch.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop hung while reconnecting")
	}
}
