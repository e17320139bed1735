package canbus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Map indexes frame definitions by id and name.
type Map struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

var mapColumns = []string{
	"frame_id", "frame_name", "dlc", "cycle_ms",
	"signal_name", "start_bit", "bit_length", "signed",
	"factor", "offset", "min", "max", "default", "unit",
}

// LoadMap reads a signal map CSV with one row per signal.
func LoadMap(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, want := range mapColumns {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("signal map missing required column %q", want)
		}
	}

	m := &Map{ByID: map[uint32]*FrameDef{}, ByName: map[string]*FrameDef{}}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(name string) string { return strings.TrimSpace(rec[col[name]]) }

		id, err := parseFrameID(get("frame_id"))
		if err != nil {
			return nil, fmt.Errorf("line %d: frame_id: %w", line, err)
		}
		name := get("frame_name")
		dlc, err := strconv.Atoi(get("dlc"))
		if err != nil || dlc <= 0 || dlc > 8 {
			return nil, fmt.Errorf("line %d: frame %s: invalid dlc %q", line, name, get("dlc"))
		}
		cycleMS, _ := strconv.Atoi(get("cycle_ms"))

		sig := SignalDef{
			Name:      get("signal_name"),
			StartBit:  atoi(get("start_bit")),
			BitLength: atoi(get("bit_length")),
			Signed:    parseBool(get("signed")),
			Factor:    atof(get("factor")),
			Offset:    atof(get("offset")),
			Min:       atof(get("min")),
			Max:       atof(get("max")),
			Default:   atof(get("default")),
			Unit:      get("unit"),
		}
		if sig.BitLength <= 0 || sig.BitLength > 64 {
			return nil, fmt.Errorf("line %d: signal %s: invalid bit_length %d", line, sig.Name, sig.BitLength)
		}
		if sig.Factor == 0 {
			return nil, fmt.Errorf("line %d: signal %s: zero factor", line, sig.Name)
		}
		if sig.StartBit < 0 || sig.StartBit+sig.BitLength > dlc*8 {
			return nil, fmt.Errorf("line %d: signal %s does not fit frame %s payload", line, sig.Name, name)
		}

		fd, ok := m.ByID[id]
		if !ok {
			fd = &FrameDef{ID: id, Name: name, DLC: dlc, CycleMS: cycleMS}
			m.ByID[id] = fd
			m.ByName[name] = fd
		} else if fd.DLC != dlc {
			return nil, fmt.Errorf("frame %s (0x%X) has inconsistent DLC (%d vs %d)", name, id, fd.DLC, dlc)
		}
		fd.Signals = append(fd.Signals, sig)
	}

	for _, fd := range m.ByID {
		sort.Slice(fd.Signals, func(i, j int) bool { return fd.Signals[i].StartBit < fd.Signals[j].StartBit })
	}
	return m, nil
}

// Frame looks up a frame definition by name.
func (m *Map) Frame(name string) (*FrameDef, error) {
	fd, ok := m.ByName[name]
	if !ok {
		names := make([]string, 0, len(m.ByName))
		for k := range m.ByName {
			names = append(names, k)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown frame %q (available: %v)", name, names)
	}
	return fd, nil
}

func parseFrameID(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base, s = 16, s[2:]
	}
	u, err := strconv.ParseUint(s, base, 32)
	return uint32(u), err
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
