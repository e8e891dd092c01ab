package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/procvalue"
)

// Format is the payload layout of a topic.
type Format int

const (
	// Direct payloads are a bare float.
	Direct Format = iota
	// Indexed payloads are comma separated; the value is the second field.
	Indexed
)

func (f Format) String() string {
	if f == Indexed {
		return "indexed"
	}
	return "direct"
}

// Policy decides what a decode failure does to the stored value.
type Policy int

const (
	KeepLast Policy = iota
	Sentinel
)

func (p Policy) String() string {
	if p == Sentinel {
		return "sentinel"
	}
	return "keep_last"
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep_last", "keep", "keeplast":
		return KeepLast, nil
	case "sentinel", "fail":
		return Sentinel, nil
	}

	return KeepLast, errors.New().WithData(errors.ErrInvalidConfig, fmt.Sprintf("unknown decode failure policy %q", s))
}

// Channel binds a topic to a store key.
type Channel struct {
	Key    procvalue.Key
	Topic  string
	Format Format
	Policy Policy
}

// DefaultChannels returns the printer and motion topics. Topic names are
// what the controllers publish, including the misspelled "Cartride".
func DefaultChannels() []Channel {
	return []Channel{
		{procvalue.CartridgeTempSet, "MEWRP4/CartridePrintHead/SET_CartridgeTemperature", Direct, KeepLast},
		{procvalue.CartridgeTempAct, "MEWRP4/CartridePrintHead/ACT_CartridgeTemperature", Indexed, Sentinel},
		{procvalue.RingTempSet, "MEWRP4/CartridePrintHead/SET_RingTemperature", Direct, KeepLast},
		{procvalue.RingTempAct, "MEWRP4/CartridePrintHead/ACT_RingTemperature", Indexed, Sentinel},
		{procvalue.PressureSet, "MEWRP4/CartridePrintHead/SET_Pressure", Direct, KeepLast},
		{procvalue.PressureAct, "MEWRP4/CartridgePrintHead/ACT_Pressure", Indexed, Sentinel},
		{procvalue.HighVoltageSet, "MEWRP4/HighVoltage/SET_HVSupplyVoltage", Direct, KeepLast},
		{procvalue.HighVoltageAct, "MEWRP4/HighVoltage/ACT_HVSupplyVoltage", Indexed, Sentinel},
		{procvalue.Speed, "CAXIS/speed_act", Direct, Sentinel},
	}
}

func decode(format Format, payload []byte) (float64, error) {
	text := string(payload)

	if format == Indexed {
		fields := strings.Split(text, ",")
		if len(fields) < 2 {
			return 0, fmt.Errorf("expected at least 2 comma separated fields, got %d", len(fields))
		}
		text = fields[1]
	}

	return strconv.ParseFloat(strings.TrimSpace(text), 64)
}
