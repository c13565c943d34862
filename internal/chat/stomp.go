package chat

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-stomp/stomp/v3/frame"
)

const (
	subChat    = "sub-chat"
	subViewers = "sub-viewers"

	headerUsername = "username"
)

func chatTopic(videoID string) string {
	return "/topic/video/" + videoID + "/chat"
}

func viewersTopic(videoID string) string {
	return "/topic/video/" + videoID + "/viewers"
}

func chatDestination(videoID string) string {
	return "/app/video/" + videoID + "/chat"
}

func connectFrame(host, username string) *frame.Frame {
	return frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.2",
		frame.Host, host,
		frame.HeartBeat, "0,0",
		headerUsername, username,
	)
}

func subscribeFrame(id, destination string) *frame.Frame {
	return frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto",
	)
}

func sendFrame(destination string, body []byte) *frame.Frame {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, "application/json",
		frame.ContentLength, strconv.Itoa(len(body)),
	)
	f.Body = body
	return f
}

func disconnectFrame() *frame.Frame {
	return frame.New(frame.DISCONNECT)
}

// encodeFrame renders one frame, NUL terminator included.
func encodeFrame(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", f.Command, err)
	}
	return buf.Bytes(), nil
}

// decodeFrames parses every frame in one WebSocket message. Heart-beats are skipped.
func decodeFrames(data []byte) ([]*frame.Frame, error) {
	r := frame.NewReader(bytes.NewReader(data))

	var frames []*frame.Frame
	for {
		f, err := r.Read()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("failed to decode frame: %w", err)
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
}
