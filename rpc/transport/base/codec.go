package base

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/serializer"
	"iter"
)

// lengthPrefixSize is the size of the length header of the length framing
const lengthPrefixSize = 4

// FrameCodec turns messages into frames and an append-only byte stream back into messages.
//
// The codec owns the receive buffer: bytes that do not yet form a complete frame stay
// buffered until the next Feed. A FrameCodec is bound to a single connection and is not
// safe for concurrent use of Feed, Encode however is stateless and may be called concurrently.
type FrameCodec struct {
	framing      common.Framing
	serializer   serializer.IRPCSerializer
	maxFrameSize int
	buf          []byte
	broken       bool // set after a fatal framing error, the stream can not be resynchronized
	barePayloads bool // frames that are not a message envelope are yielded as result without id
}

// NewFrameCodec creates a codec for the given framing
func NewFrameCodec(framing common.Framing, s serializer.IRPCSerializer, maxFrameSize int) (*FrameCodec, error) {
	if framing != common.FramingNewline && framing != common.FramingLength {
		return nil, fmt.Errorf("unsupported framing %q", framing)
	}
	if s == nil {
		return nil, fmt.Errorf("no serializer provided")
	}
	if maxFrameSize <= 0 {
		maxFrameSize = common.DefaultMaxFrameSize
	}
	return &FrameCodec{
		framing:      framing,
		serializer:   s,
		maxFrameSize: maxFrameSize,
	}, nil
}

// AcceptBarePayloads makes the codec yield any valid JSON frame that is not a message envelope
// (a bare array, or an object without command, result and error) as a response without id
// that carries the whole frame as result. Plug-ins that answer strictly one request at a time
// send their results this way.
func (c *FrameCodec) AcceptBarePayloads() {
	c.barePayloads = true
}

// Encode serializes the message and wraps it into a frame ready to be written
func (c *FrameCodec) Encode(msg *common.Message) ([]byte, error) {
	body, err := c.serializer.Serialize(*msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncodeFailure, err)
	}
	if len(body) > c.maxFrameSize {
		return nil, fmt.Errorf("%w: %w (%d > %d bytes)", common.ErrEncodeFailure, common.ErrFrameTooLarge, len(body), c.maxFrameSize)
	}

	switch c.framing {
	case common.FramingLength:
		frame := make([]byte, lengthPrefixSize+len(body))
		binary.BigEndian.PutUint32(frame[:lengthPrefixSize], uint32(len(body)))
		copy(frame[lengthPrefixSize:], body)
		return frame, nil
	default:
		if bytes.IndexByte(body, '\n') >= 0 {
			return nil, fmt.Errorf("%w: serialized message contains a newline", common.ErrEncodeFailure)
		}
		return append(body, '\n'), nil
	}
}

// Feed appends data to the receive buffer and returns a lazy sequence of the complete
// messages now available. A frame that is not valid JSON is yielded as an error wrapping
// common.ErrDecodeFailure, the following frames are not affected. An error wrapping
// common.ErrFrameTooLarge is fatal: the codec stops yielding and the connection must be dropped.
//
// Frames are only removed from the buffer while the sequence is iterated. If the consumer
// stops early, the remaining frames are returned by the next Feed.
func (c *FrameCodec) Feed(data []byte) iter.Seq2[*common.Message, error] {
	c.buf = append(c.buf, data...)

	return func(yield func(*common.Message, error) bool) {
		for !c.broken {
			frame, ok, err := c.next()
			if err != nil {
				c.broken = true
				c.buf = nil
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			if frame == nil {
				// empty line, nothing to decode
				continue
			}

			msg := &common.Message{}
			err = c.serializer.Deserialize(frame, msg)
			if c.barePayloads && (err != nil || !isEnvelope(msg)) && json.Valid(frame) {
				msg, err = &common.Message{Result: bytes.Clone(frame)}, nil
			}
			if err != nil {
				if !yield(nil, fmt.Errorf("%w: %v", common.ErrDecodeFailure, err)) {
					return
				}
				continue
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// isEnvelope reports whether a decoded object is a message. An id alone does not count,
// results of the plug-in (e.g. element info) carry an id field of their own.
func isEnvelope(msg *common.Message) bool {
	return msg.Command != "" || len(msg.Result) > 0 || msg.Error != ""
}

// Buffered returns the number of bytes waiting for the rest of their frame
func (c *FrameCodec) Buffered() int {
	return len(c.buf)
}

// next extracts the next complete frame from the buffer.
// It returns ok=false if the buffer does not hold a complete frame yet.
// For the newline framing, an empty line is reported as ok=true with a nil frame.
func (c *FrameCodec) next() (frame []byte, ok bool, err error) {
	switch c.framing {
	case common.FramingLength:
		if len(c.buf) < lengthPrefixSize {
			return nil, false, nil
		}
		size := binary.BigEndian.Uint32(c.buf[:lengthPrefixSize])
		if uint64(size) > uint64(c.maxFrameSize) {
			return nil, false, fmt.Errorf("%w: announced %d bytes, limit is %d", common.ErrFrameTooLarge, size, c.maxFrameSize)
		}
		end := lengthPrefixSize + int(size)
		if len(c.buf) < end {
			return nil, false, nil
		}
		frame = c.buf[lengthPrefixSize:end]
		c.advance(end)
		if len(frame) == 0 {
			return nil, true, nil
		}
		return frame, true, nil

	default:
		idx := bytes.IndexByte(c.buf, '\n')
		if idx < 0 {
			if len(c.buf) > c.maxFrameSize {
				return nil, false, fmt.Errorf("%w: %d bytes without delimiter, limit is %d", common.ErrFrameTooLarge, len(c.buf), c.maxFrameSize)
			}
			return nil, false, nil
		}
		frame = bytes.TrimSpace(c.buf[:idx])
		c.advance(idx + 1)
		if len(frame) == 0 {
			return nil, true, nil
		}
		return frame, true, nil
	}
}

// advance drops the first n bytes of the buffer. The extracted frame stays valid
// until the next append, since the backing array is only reused once it is empty.
func (c *FrameCodec) advance(n int) {
	c.buf = c.buf[n:]
	if len(c.buf) == 0 {
		c.buf = nil
	}
}
