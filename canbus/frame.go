// Package canbus is the command output boundary: a CSV-defined signal map,
// a little-endian pack/unpack codec and a publisher that turns controller
// commands into CAN frames.
package canbus

import (
	"fmt"
	"math"

	"go.einride.tech/can"
)

// SignalDef describes one physical signal inside a frame payload.
// Only little-endian packing is supported.
type SignalDef struct {
	Name      string
	StartBit  int
	BitLength int
	Signed    bool
	Factor    float64
	Offset    float64
	Min       float64
	Max       float64
	Default   float64
	Unit      string
}

// FrameDef describes one CAN frame and its signal layout.
type FrameDef struct {
	ID      uint32
	Name    string
	DLC     int
	CycleMS int
	Signals []SignalDef
}

// Encode packs physical values into a transmittable frame. Missing signals
// take their defaults; values are clamped to the signal's physical range and
// the raw range of its bit field.
func (fd *FrameDef) Encode(values map[string]float64) (can.Frame, error) {
	if fd.DLC <= 0 || fd.DLC > 8 {
		return can.Frame{}, fmt.Errorf("frame %s has invalid DLC %d", fd.Name, fd.DLC)
	}
	var payload uint64
	for _, s := range fd.Signals {
		v, ok := values[s.Name]
		if !ok {
			v = s.Default
		}
		v = math.Min(math.Max(v, s.Min), s.Max)
		raw := clampRaw(int64(math.Round((v-s.Offset)/s.Factor)), s.BitLength, s.Signed)
		payload = setBits(payload, s.StartBit, s.BitLength, toUnsigned(raw, s.BitLength))
	}

	var f can.Frame
	f.ID = fd.ID
	f.Length = uint8(fd.DLC)
	for i := 0; i < fd.DLC; i++ {
		f.Data[i] = byte(payload >> (8 * i))
	}
	return f, nil
}

// Decode unpacks a payload into physical values keyed by signal name.
func (fd *FrameDef) Decode(data []byte) (map[string]float64, error) {
	if len(data) < fd.DLC {
		return nil, fmt.Errorf("frame %s expects DLC %d, got %d bytes", fd.Name, fd.DLC, len(data))
	}
	var payload uint64
	for i := 0; i < fd.DLC && i < 8; i++ {
		payload |= uint64(data[i]) << (8 * i)
	}
	out := make(map[string]float64, len(fd.Signals))
	for _, s := range fd.Signals {
		raw := toSigned(getBits(payload, s.StartBit, s.BitLength), s.BitLength, s.Signed)
		out[s.Name] = float64(raw)*s.Factor + s.Offset
	}
	return out, nil
}

func getBits(payload uint64, start, length int) uint64 {
	if length <= 0 || length > 64 {
		return 0
	}
	return (payload >> start) & mask(length)
}

func setBits(payload uint64, start, length int, value uint64) uint64 {
	if length <= 0 || length > 64 {
		return payload
	}
	payload &^= mask(length) << start
	return payload | (value&mask(length))<<start
}

func mask(length int) uint64 {
	return uint64(1)<<length - 1
}

func toSigned(u uint64, length int, signed bool) int64 {
	if !signed || u&(1<<(length-1)) == 0 {
		return int64(u)
	}
	return -int64((^u + 1) & mask(length))
}

func toUnsigned(raw int64, length int) uint64 {
	if raw >= 0 {
		return uint64(raw)
	}
	return (^uint64(-raw) + 1) & mask(length)
}

func clampRaw(raw int64, length int, signed bool) int64 {
	if length <= 0 || length > 63 {
		return raw
	}
	lo, hi := int64(0), int64(mask(length))
	if signed {
		lo, hi = -int64(1)<<(length-1), int64(1)<<(length-1)-1
	}
	if raw < lo {
		return lo
	}
	if raw > hi {
		return hi
	}
	return raw
}
