// Package audio provides PCM/WAV encoding helpers shared by the
// transcriber adapters and session recording export.
package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodePCM16 converts 16kHz mono float32 samples in [-1, 1] to
// little-endian signed 16-bit PCM bytes, clamping any sample that
// overflows the range instead of wrapping it.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*32767)))
	}
	return out
}

// NewWavBufferFromFloat32 wraps EncodePCM16(samples) in a WAV container
// at sampleRate, for exporting a session's recording buffer.
func NewWavBufferFromFloat32(samples []float32, sampleRate int) []byte {
	return NewWavBuffer(EncodePCM16(samples), sampleRate)
}

func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)

	
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))           
	binary.Write(buf, binary.LittleEndian, uint16(1))            
	binary.Write(buf, binary.LittleEndian, uint16(1))            
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))   
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) 
	binary.Write(buf, binary.LittleEndian, uint16(2))            
	binary.Write(buf, binary.LittleEndian, uint16(16))           

	
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
