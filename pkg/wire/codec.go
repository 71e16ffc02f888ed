// Package wire defines the binary/JSON framing the transport layer
// uses to carry session.AudioChunk and session.TranscriptionResult
// across a bidirectional stream (spec.md §1 treats the transport
// itself as an opaque async channel; this package is the concrete
// encode/decode the websocket server and any other transport uses).
//
// Audio frames are sent as binary websocket messages: a 4-byte
// little-endian uint32 sample rate header followed by little-endian
// float32 PCM samples. Results are sent as JSON text messages. This
// avoids protobuf codegen, which is explicitly out of scope.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"

	"github.com/lokutor-ai/transcribe-core/pkg/session"
)

// ErrShortFrame is returned by DecodeAudioChunk when a binary frame is
// too short to contain even the sample-rate header.
var ErrShortFrame = errors.New("wire: audio frame shorter than header")

const headerLen = 4

// EncodeAudioChunk serializes a session.AudioChunk as a binary frame.
func EncodeAudioChunk(chunk session.AudioChunk) []byte {
	out := make([]byte, headerLen+len(chunk.Data)*4)
	binary.LittleEndian.PutUint32(out, chunk.SampleRate)
	for i, s := range chunk.Data {
		binary.LittleEndian.PutUint32(out[headerLen+i*4:], math.Float32bits(s))
	}
	return out
}

// DecodeAudioChunk parses a binary frame produced by EncodeAudioChunk.
func DecodeAudioChunk(frame []byte) (session.AudioChunk, error) {
	if len(frame) < headerLen {
		return session.AudioChunk{}, ErrShortFrame
	}
	rate := binary.LittleEndian.Uint32(frame)
	body := frame[headerLen:]
	n := len(body) / 4
	data := make([]float32, n)
	for i := 0; i < n; i++ {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return session.AudioChunk{Data: data, SampleRate: rate}, nil
}

// resultWire is the JSON shape a TranscriptionResult is sent as.
type resultWire struct {
	Text      string  `json:"text"`
	IsFinal   bool    `json:"is_final"`
	StartTime float64 `json:"start_time"`
}

func toWire(r session.TranscriptionResult) resultWire {
	return resultWire{Text: r.Text, IsFinal: r.IsFinal, StartTime: r.StartTime}
}

func fromWire(w resultWire) session.TranscriptionResult {
	return session.TranscriptionResult{Text: w.Text, IsFinal: w.IsFinal, StartTime: w.StartTime}
}

// EncodeResult serializes a TranscriptionResult as the JSON text frame
// sent back to the client.
func EncodeResult(r session.TranscriptionResult) ([]byte, error) {
	return json.Marshal(toWire(r))
}

// DecodeResult parses a JSON text frame back into a TranscriptionResult
// (used by test clients and any non-Go consumer validation).
func DecodeResult(data []byte) (session.TranscriptionResult, error) {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return session.TranscriptionResult{}, err
	}
	return fromWire(w), nil
}
