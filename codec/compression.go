package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm selects the block compression used by Compressed.
type Algorithm uint8

const (
	// LZ4 is fast block compression, suited to hot objects.
	LZ4 Algorithm = iota + 1
	// ZSTD trades speed for a better ratio.
	ZSTD
)

// String returns the stable name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm resolves an algorithm by its stable name.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch name {
	case "lz4":
		return LZ4, true
	case "zstd":
		return ZSTD, true
	default:
		return 0, false
	}
}

var (
	// ErrCorruptFrame is returned when compressed data cannot be decoded.
	ErrCorruptFrame = errors.New("codec: corrupt compressed frame")

	// ErrFrameTooLarge is returned when an encoding exceeds the frame limit.
	ErrFrameTooLarge = errors.New("codec: encoding too large to compress")
)

// Frame format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize == 0 means Data is stored uncompressed.
const frameHeaderSize = 8

// minRatio is the compressed/uncompressed ratio above which data is stored raw.
const minRatio = 0.9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Compressed wraps a codec and compresses its output.
//
// Large, repetitive objects shrink their arena footprint; tiny objects pay the
// frame header.
type Compressed struct {
	inner Codec
	algo  Algorithm
}

// NewCompressed wraps inner with the given algorithm.
// A nil inner codec falls back to Default.
func NewCompressed(inner Codec, algo Algorithm) *Compressed {
	if inner == nil {
		inner = Default
	}
	return &Compressed{inner: inner, algo: algo}
}

// Name returns "<inner>+<algorithm>".
func (c *Compressed) Name() string {
	return c.inner.Name() + "+" + c.algo.String()
}

// Marshal encodes v with the inner codec and compresses the result.
func (c *Compressed) Marshal(v any) ([]byte, error) {
	raw, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return compressFrame(raw, c.algo)
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (c *Compressed) Unmarshal(data []byte, v any) error {
	raw, err := decompressFrame(data, c.algo)
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(raw, v)
}

func compressFrame(data []byte, algo Algorithm) ([]byte, error) {
	if len(data) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	var (
		compressed []byte
		err        error
	)
	switch algo {
	case LZ4:
		compressed, err = compressLZ4(data)
	case ZSTD:
		compressed = compressZSTD(data)
	default:
		return nil, fmt.Errorf("codec: unknown compression %s", algo)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*minRatio {
		out := make([]byte, frameHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[frameHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, frameHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[frameHeaderSize:], compressed)
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return dst[:n], nil
}

func compressZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil)
}

func decompressFrame(data []byte, algo Algorithm) ([]byte, error) {
	if len(data) < frameHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptFrame, len(data))
	}

	size := binary.LittleEndian.Uint32(data[0:])
	csize := binary.LittleEndian.Uint32(data[4:])
	body := data[frameHeaderSize:]

	if csize == 0 {
		if uint64(len(body)) < uint64(size) {
			return nil, fmt.Errorf("%w: truncated body", ErrCorruptFrame)
		}
		return body[:size], nil
	}
	if uint64(len(body)) < uint64(csize) {
		return nil, fmt.Errorf("%w: truncated body", ErrCorruptFrame)
	}
	body = body[:csize]

	switch algo {
	case LZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptFrame, err)
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorruptFrame)
		}
		return out, nil

	case ZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptFrame, err)
		}
		if uint32(len(out)) != size {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorruptFrame)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("codec: unknown compression %s", algo)
	}
}
