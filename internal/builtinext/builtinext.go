// Package builtinext implements the "kabap" extension the engine
// always registers, exposing its own version, scale and a random
// number source under the kabap.* prefix (spec §4.4).
package builtinext

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/kabaplang/kabap-go/internal/extension"
)

// Extension is the engine's own built-in extension.
type Extension struct {
	major, minor int
	getScale     func() int
	setScale     func(int)
	rng          *rand.Rand
}

// New creates the built-in extension. getScale/setScale bind it to the
// owning engine's configured scale, so kabap.scale reads and writes see
// the engine's current value rather than a snapshot. An executor that
// is already running keeps the scale it was created with: a write to
// kabap.scale changes the formatting of later runs, not of the run
// that made the write.
func New(major, minor int, getScale func() int, setScale func(int)) *Extension {
	return &Extension{
		major:    major,
		minor:    minor,
		getScale: getScale,
		setScale: setScale,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Name identifies this extension for the registry's duplicate check.
func (e *Extension) Name() string { return "kabap" }

// Register always accepts, under the reserved "kabap" prefix.
func (e *Extension) Register(engineMajor int, debug bool) (string, bool) {
	return "kabap", true
}

// Reset is a no-op: the built-in extension carries no per-run state.
func (e *Extension) Reset() {}

func (e *Extension) Handle(msg extension.Message) extension.Message {
	switch key(msg.Name) {
	case "version":
		return readOnly(msg, fmt.Sprintf("%d.%d", e.major, e.minor))
	case "scale":
		return e.handleScale(msg)
	case "random":
		return readOnly(msg, strconv.Itoa(e.rng.Intn(10000)))
	default:
		msg.Result = extension.Ignored
		return msg
	}
}

func (e *Extension) handleScale(msg extension.Message) extension.Message {
	if msg.Kind == extension.Write {
		n, err := strconv.Atoi(msg.Value)
		if err != nil {
			msg.Result = extension.HandledFail
			msg.Value = "kabap.scale requires an integer value"
			return msg
		}
		e.setScale(n)
		msg.Result = extension.HandledOkay
		return msg
	}
	msg.Value = strconv.Itoa(e.getScale())
	msg.Result = extension.HandledOkay
	return msg
}

// readOnly answers a read with value and rejects any write.
func readOnly(msg extension.Message, value string) extension.Message {
	if msg.Kind == extension.Write {
		msg.Result = extension.HandledFail
		msg.Value = msg.Name + " is read-only"
		return msg
	}
	msg.Value = value
	msg.Result = extension.HandledOkay
	return msg
}

// key returns the part of a "prefix.key" reference after the first dot.
func key(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return ""
}
